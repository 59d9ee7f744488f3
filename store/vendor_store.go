package store

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"yellowpages-backend/models"
	"yellowpages-backend/validation"
)

const (
	DefaultListLimit = 1000
	DefaultTimeout   = 5 * time.Second

	FallbackIDPrefix = "fallback-"
)

var errEmptyCollection = errors.New("vendor collection returned no records")

// Options tunes a VendorStore. The zero value disables fallback mode.
type Options struct {
	FallbackEnabled bool
	FallbackOnEmpty bool
	Timeout         time.Duration
	Now             func() time.Time
	NewID           func() string
	Logger          *zerolog.Logger
}

// NewVendor carries the raw user supplied fields of a create request.
type NewVendor struct {
	VendorName          string
	ServiceProviderName string
	PhoneNumber         string
}

// VendorPatch is a partial update; nil fields are left unchanged.
type VendorPatch struct {
	VendorName          *string `json:"vendor_name"`
	ServiceProviderName *string `json:"service_provider_name"`
	PhoneNumber         *string `json:"phone_number"`
}

type SeedResult struct {
	Inserted      int
	Total         int64
	AlreadySeeded bool
}

// VendorStore enforces the vendor invariants on top of a Collection and
// degrades to demo data when the collection cannot serve reads or creates.
// Only List and Create are served from demo data once fallback mode is on.
// Get, Update, Delete and Seed keep going to the collection and report
// ErrStorageUnavailable when it fails, so an update or delete can still
// persist while List shows the demo catalog.
type VendorStore struct {
	coll Collection
	opts Options

	fallback atomic.Bool
	degraded atomic.Int64
}

func NewVendorStore(coll Collection, opts Options) *VendorStore {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &VendorStore{coll: coll, opts: opts}
}

// InFallback reports whether the store serves demo data. Once set it stays set.
func (s *VendorStore) InFallback() bool {
	return s.fallback.Load()
}

// DegradedResponses counts responses served from demo data.
func (s *VendorStore) DegradedResponses() int64 {
	return s.degraded.Load()
}

func (s *VendorStore) Create(ctx context.Context, in NewVendor) (*models.Vendor, error) {
	c, err := validation.Vendor(in.VendorName, in.ServiceProviderName, in.PhoneNumber)
	if err != nil {
		return nil, err
	}
	if s.InFallback() {
		return s.synthesize(c), nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	if err := s.checkUnique(ctx, c.VendorName, c.PhoneNumber, ""); err != nil {
		if errors.Is(err, ErrStorageUnavailable) && s.opts.FallbackEnabled {
			s.enterFallback("create", err)
			return s.synthesize(c), nil
		}
		return nil, err
	}

	now := s.opts.Now()
	vendor := &models.Vendor{
		Id:                  s.opts.NewID(),
		VendorName:          c.VendorName,
		ServiceProviderName: c.ServiceProviderName,
		PhoneNumber:         c.PhoneNumber,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.coll.InsertOne(ctx, vendor); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return nil, s.classifyConflict(ctx, c.VendorName, c.PhoneNumber, "")
		}
		err = unavailable("insert vendor", err)
		if s.opts.FallbackEnabled {
			s.enterFallback("create", err)
			return s.synthesize(c), nil
		}
		return nil, err
	}
	return vendor, nil
}

// List returns vendors newest first, at most limit of them.
func (s *VendorStore) List(ctx context.Context, limit int) ([]models.Vendor, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	if s.InFallback() {
		return s.demo(limit), nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	vendors, err := s.coll.Find(ctx, nil, limit)
	if err != nil {
		err = unavailable("list vendors", err)
		if !s.opts.FallbackEnabled {
			return nil, err
		}
		s.enterFallback("list", err)
		return s.demo(limit), nil
	}
	if len(vendors) == 0 {
		if s.opts.FallbackEnabled && s.opts.FallbackOnEmpty {
			s.enterFallback("list", errEmptyCollection)
			return s.demo(limit), nil
		}
		return []models.Vendor{}, nil
	}
	return vendors, nil
}

func (s *VendorStore) Get(ctx context.Context, id string) (*models.Vendor, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	return s.get(ctx, id)
}

func (s *VendorStore) get(ctx context.Context, id string) (*models.Vendor, error) {
	vendor, err := s.coll.FindOne(ctx, Filter{"id": id})
	switch {
	case errors.Is(err, ErrNoDocuments):
		return nil, ErrNotFound
	case err != nil:
		return nil, unavailable("get vendor", err)
	}
	return vendor, nil
}

// Update applies the fields present in patch. Present fields are validated
// and uniqueness is checked against every other vendor.
func (s *VendorStore) Update(ctx context.Context, id string, patch VendorPatch) (*models.Vendor, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	existing, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	normalized, err := normalizePatch(patch)
	if err != nil {
		return nil, err
	}

	var name, phone string
	if normalized.VendorName != nil && *normalized.VendorName != existing.VendorName {
		name = *normalized.VendorName
	}
	if normalized.PhoneNumber != nil && *normalized.PhoneNumber != existing.PhoneNumber {
		phone = *normalized.PhoneNumber
	}
	if err := s.checkUnique(ctx, name, phone, id); err != nil {
		return nil, err
	}

	set := normalized.columns()
	set["updated_at"] = s.opts.Now()

	n, err := s.coll.UpdateOne(ctx, Filter{"id": id}, set)
	switch {
	case errors.Is(err, ErrDuplicateKey):
		return nil, s.classifyConflict(ctx, name, phone, id)
	case err != nil:
		return nil, unavailable("update vendor", err)
	case n == 0:
		return nil, ErrNotFound
	}
	return s.get(ctx, id)
}

func (s *VendorStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	n, err := s.coll.DeleteOne(ctx, Filter{"id": id})
	if err != nil {
		return unavailable("delete vendor", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Seed bulk loads the embedded catalog into an empty collection. It skips
// validation and the create path entirely.
func (s *VendorStore) Seed(ctx context.Context) (SeedResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	total, err := s.coll.Count(ctx, nil)
	if err != nil {
		return SeedResult{}, unavailable("count vendors", err)
	}
	if total > 0 {
		return SeedResult{Total: total, AlreadySeeded: true}, nil
	}

	entries, err := SeedCatalog()
	if err != nil {
		return SeedResult{}, err
	}
	now := s.opts.Now()
	vendors := make([]models.Vendor, 0, len(entries))
	for _, e := range entries {
		vendors = append(vendors, models.Vendor{
			Id:                  s.opts.NewID(),
			VendorName:          e.VendorName,
			ServiceProviderName: e.ServiceProviderName,
			PhoneNumber:         e.PhoneNumber,
			CreatedAt:           now,
			UpdatedAt:           now,
		})
	}

	if err := s.coll.InsertMany(ctx, vendors); err != nil {
		if !errors.Is(err, ErrDuplicateKey) {
			return SeedResult{}, unavailable("seed vendors", err)
		}
		// lost a race with a concurrent seed
		total, err = s.coll.Count(ctx, nil)
		if err != nil {
			return SeedResult{}, unavailable("count vendors", err)
		}
		return SeedResult{Total: total, AlreadySeeded: true}, nil
	}
	return SeedResult{Inserted: len(vendors), Total: int64(len(vendors))}, nil
}

// Ping checks storage connectivity.
func (s *VendorStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	if err := s.coll.Ping(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// checkUnique looks for another vendor holding name or phone. Empty values
// are skipped; selfID excludes the vendor being updated.
func (s *VendorStore) checkUnique(ctx context.Context, name, phone, selfID string) error {
	checks := []struct {
		column string
		value  string
		kind   ConflictKind
	}{
		{"vendor_name", name, DuplicateName},
		{"phone_number", phone, DuplicatePhone},
	}
	for _, check := range checks {
		if check.value == "" {
			continue
		}
		found, err := s.coll.FindOne(ctx, Filter{check.column: check.value})
		switch {
		case errors.Is(err, ErrNoDocuments):
			continue
		case err != nil:
			return unavailable("uniqueness check", err)
		case found.Id != selfID:
			return &ConflictError{Kind: check.kind}
		}
	}
	return nil
}

// classifyConflict names the field behind a unique index violation.
func (s *VendorStore) classifyConflict(ctx context.Context, name, phone, selfID string) error {
	var conflict *ConflictError
	if err := s.checkUnique(ctx, name, phone, selfID); errors.As(err, &conflict) {
		return conflict
	}
	if name == "" && phone != "" {
		return &ConflictError{Kind: DuplicatePhone}
	}
	return &ConflictError{Kind: DuplicateName}
}

func (s *VendorStore) enterFallback(op string, cause error) {
	logger := s.logger()
	if s.fallback.CompareAndSwap(false, true) {
		logger.Error().Err(cause).Str("op", op).Msg("vendor storage failed, switching to fallback demo data")
		return
	}
	logger.Error().Err(cause).Str("op", op).Msg("vendor storage failed while fallback mode is active")
}

func (s *VendorStore) demo(limit int) []models.Vendor {
	s.degraded.Add(1)
	s.logger().Warn().Str("op", "list").Msg("serving fallback demo vendors")
	vendors := DemoCatalog()
	if len(vendors) > limit {
		vendors = vendors[:limit]
	}
	return vendors
}

// synthesize builds a record that is returned but never persisted.
func (s *VendorStore) synthesize(c validation.Candidate) *models.Vendor {
	s.degraded.Add(1)
	id := s.opts.NewID()
	if len(id) > 8 {
		id = id[:8]
	}
	now := s.opts.Now()
	vendor := &models.Vendor{
		Id:                  FallbackIDPrefix + id,
		VendorName:          c.VendorName,
		ServiceProviderName: c.ServiceProviderName,
		PhoneNumber:         c.PhoneNumber,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	s.logger().Warn().Str("op", "create").Str("id", vendor.Id).Msg("fallback mode: vendor not persisted")
	return vendor
}

func (s *VendorStore) logger() *zerolog.Logger {
	if s.opts.Logger != nil {
		return s.opts.Logger
	}
	return &log.Logger
}

func normalizePatch(patch VendorPatch) (VendorPatch, error) {
	var out VendorPatch
	fields := []struct {
		name string
		in   *string
		out  **string
	}{
		{"vendor_name", patch.VendorName, &out.VendorName},
		{"service_provider_name", patch.ServiceProviderName, &out.ServiceProviderName},
		{"phone_number", patch.PhoneNumber, &out.PhoneNumber},
	}
	for _, f := range fields {
		if f.in == nil {
			continue
		}
		value, err := validation.Field(f.name, *f.in)
		if err != nil {
			return VendorPatch{}, err
		}
		*f.out = &value
	}
	return out, nil
}

// columns maps the present fields to their vendor table columns.
func (p VendorPatch) columns() map[string]any {
	set := make(map[string]any, 4)
	if p.VendorName != nil {
		set["vendor_name"] = *p.VendorName
	}
	if p.ServiceProviderName != nil {
		set["service_provider_name"] = *p.ServiceProviderName
	}
	if p.PhoneNumber != nil {
		set["phone_number"] = *p.PhoneNumber
	}
	return set
}

func (r SeedResult) String() string {
	if r.AlreadySeeded {
		return fmt.Sprintf("Database already has %d vendors", r.Total)
	}
	return fmt.Sprintf("Seeded %d vendors successfully", r.Inserted)
}
