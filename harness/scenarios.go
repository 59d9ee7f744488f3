package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// VendorScenarios is the standard smoke suite for the vendor endpoints.
func VendorScenarios() []Scenario {
	return []Scenario{
		{Name: "valid_vendor_creation", Run: validVendorCreation},
		{Name: "phone_number_validation", Run: phoneNumberValidation},
		{Name: "required_fields_validation", Run: requiredFieldsValidation},
		{Name: "duplicate_vendor_name", Run: duplicateVendorName},
		{Name: "duplicate_phone_number", Run: duplicatePhoneNumber},
		{Name: "get_all_vendors", Run: getAllVendors},
		{Name: "get_specific_vendor", Run: getSpecificVendor},
	}
}

func vendorBody(name, provider, phone string) map[string]string {
	return map[string]string{
		"vendor_name":           name,
		"service_provider_name": provider,
		"phone_number":          phone,
	}
}

func expectStatus(got, want int, raw []byte) error {
	if got != want {
		return fmt.Errorf("expected status %d, got %d: %s", want, got, strings.TrimSpace(string(raw)))
	}
	return nil
}

func validVendorCreation(_ context.Context, r *Runner) error {
	body := vendorBody(r.Name("ABC Corporation"), "John Smith", r.Phone())
	status, v, raw, err := r.CreateVendor(body)
	if err != nil {
		return err
	}
	if err := expectStatus(status, fiber.StatusOK, raw); err != nil {
		return err
	}
	switch {
	case v.Id == "":
		return fmt.Errorf("vendor id missing in response")
	case v.VendorName != body["vendor_name"]:
		return fmt.Errorf("vendor_name mismatch: want %q, got %q", body["vendor_name"], v.VendorName)
	case v.ServiceProviderName != body["service_provider_name"]:
		return fmt.Errorf("service_provider_name mismatch: want %q, got %q", body["service_provider_name"], v.ServiceProviderName)
	case v.PhoneNumber != body["phone_number"]:
		return fmt.Errorf("phone_number mismatch: want %q, got %q", body["phone_number"], v.PhoneNumber)
	}
	return nil
}

func phoneNumberValidation(_ context.Context, r *Runner) error {
	for i, format := range []func(digits string) string{
		func(d string) string { return d },
		func(d string) string { return fmt.Sprintf("(%s) %s-%s", d[:3], d[3:6], d[6:]) },
		func(d string) string { return fmt.Sprintf("%s-%s-%s", d[:3], d[3:6], d[6:]) },
	} {
		digits := r.Phone()
		status, v, raw, err := r.CreateVendor(vendorBody(
			r.Name(fmt.Sprintf("Phone Test Company %d", i)), fmt.Sprintf("Phone Test Provider %d", i), format(digits)))
		if err != nil {
			return err
		}
		if err := expectStatus(status, fiber.StatusOK, raw); err != nil {
			return fmt.Errorf("format %q: %w", format(digits), err)
		}
		if v.PhoneNumber != digits {
			return fmt.Errorf("phone not cleaned: want %q, got %q", digits, v.PhoneNumber)
		}
	}

	for i, invalid := range []string{"123abc4567", "123", "12345678901234567890"} {
		status, _, raw, err := r.CreateVendor(vendorBody(
			r.Name(fmt.Sprintf("Invalid Phone Company %d", i)), fmt.Sprintf("Invalid Phone Provider %d", i), invalid))
		if err != nil {
			return err
		}
		if err := expectStatus(status, fiber.StatusBadRequest, raw); err != nil {
			return fmt.Errorf("invalid phone %q: %w", invalid, err)
		}
	}
	return nil
}

func requiredFieldsValidation(_ context.Context, r *Runner) error {
	phone := r.Phone()
	cases := []map[string]string{
		vendorBody("", "Required Fields Provider", phone),
		vendorBody(r.Name("Required Fields Company"), "", phone),
		vendorBody(r.Name("Required Fields Company"), "Required Fields Provider", ""),
	}
	for _, body := range cases {
		status, _, raw, err := r.CreateVendor(body)
		if err != nil {
			return err
		}
		if status == fiber.StatusOK {
			return fmt.Errorf("created vendor with an empty field: %s", raw)
		}
	}
	return nil
}

func duplicateVendorName(_ context.Context, r *Runner) error {
	name := r.Name("Duplicate Name Company")
	status, _, raw, err := r.CreateVendor(vendorBody(name, "Duplicate Name Provider", r.Phone()))
	if err != nil {
		return err
	}
	if err := expectStatus(status, fiber.StatusOK, raw); err != nil {
		return fmt.Errorf("first create: %w", err)
	}

	status, _, raw, err = r.CreateVendor(vendorBody(name, "Different Provider", r.Phone()))
	if err != nil {
		return err
	}
	if err := expectStatus(status, fiber.StatusBadRequest, raw); err != nil {
		return fmt.Errorf("duplicate name: %w", err)
	}
	if !strings.Contains(string(raw), "name already exists") {
		return fmt.Errorf("unexpected duplicate name message: %s", raw)
	}
	return nil
}

func duplicatePhoneNumber(_ context.Context, r *Runner) error {
	digits := r.Phone()
	status, _, raw, err := r.CreateVendor(vendorBody(r.Name("Phone Owner Company"), "Phone Owner", digits))
	if err != nil {
		return err
	}
	if err := expectStatus(status, fiber.StatusOK, raw); err != nil {
		return fmt.Errorf("first create: %w", err)
	}

	formatted := fmt.Sprintf("(%s) %s-%s", digits[:3], digits[3:6], digits[6:])
	status, _, raw, err = r.CreateVendor(vendorBody(r.Name("Phone Copy Company"), "Phone Copier", formatted))
	if err != nil {
		return err
	}
	if err := expectStatus(status, fiber.StatusBadRequest, raw); err != nil {
		return fmt.Errorf("duplicate phone: %w", err)
	}
	if !strings.Contains(string(raw), "phone number already exists") {
		return fmt.Errorf("unexpected duplicate phone message: %s", raw)
	}
	return nil
}

func getAllVendors(_ context.Context, r *Runner) error {
	status, raw, err := r.Get("/vendors")
	if err != nil {
		return err
	}
	if err := expectStatus(status, fiber.StatusOK, raw); err != nil {
		return err
	}
	var vendors []Vendor
	if err := json.Unmarshal(raw, &vendors); err != nil {
		return fmt.Errorf("decode vendor list: %w", err)
	}
	listed := make(map[string]bool, len(vendors))
	for _, v := range vendors {
		listed[v.Id] = true
	}
	for _, id := range r.created {
		if !listed[id] {
			return fmt.Errorf("created vendor %s missing from list", id)
		}
	}
	return nil
}

func getSpecificVendor(ctx context.Context, r *Runner) error {
	if len(r.created) == 0 {
		if err := validVendorCreation(ctx, r); err != nil {
			return fmt.Errorf("setup: %w", err)
		}
	}
	id := r.created[0]
	status, raw, err := r.Get("/vendors/" + id)
	if err != nil {
		return err
	}
	if err := expectStatus(status, fiber.StatusOK, raw); err != nil {
		return err
	}
	var v Vendor
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("decode vendor: %w", err)
	}
	if v.Id != id {
		return fmt.Errorf("id mismatch: want %s, got %s", id, v.Id)
	}

	status, raw, err = r.Get("/vendors/does-not-exist-" + r.RunID)
	if err != nil {
		return err
	}
	return expectStatus(status, fiber.StatusNotFound, raw)
}
