package store_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yellowpages-backend/database"
	"yellowpages-backend/models"
	"yellowpages-backend/store"
	"yellowpages-backend/validation"
)

func newSQLiteCollection(t *testing.T) store.Collection {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "vendors.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return database.NewVendorCollection(db)
}

// clock hands out strictly increasing timestamps.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newStore(t *testing.T, coll store.Collection, opts store.Options) *store.VendorStore {
	t.Helper()
	if opts.Now == nil {
		c := &clock{now: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)}
		opts.Now = c.Now
	}
	nop := zerolog.Nop()
	opts.Logger = &nop
	return store.NewVendorStore(coll, opts)
}

var errBroken = errors.New("connection refused")

// brokenCollection fails every call.
type brokenCollection struct{}

func (brokenCollection) InsertOne(context.Context, *models.Vendor) error   { return errBroken }
func (brokenCollection) InsertMany(context.Context, []models.Vendor) error { return errBroken }
func (brokenCollection) FindOne(context.Context, store.Filter) (*models.Vendor, error) {
	return nil, errBroken
}
func (brokenCollection) Find(context.Context, store.Filter, int) ([]models.Vendor, error) {
	return nil, errBroken
}
func (brokenCollection) UpdateOne(context.Context, store.Filter, map[string]any) (int64, error) {
	return 0, errBroken
}
func (brokenCollection) DeleteOne(context.Context, store.Filter) (int64, error) { return 0, errBroken }
func (brokenCollection) Count(context.Context, store.Filter) (int64, error)     { return 0, errBroken }
func (brokenCollection) Ping(context.Context) error                             { return errBroken }

// stalledCollection blocks every call until the context expires.
type stalledCollection struct{ brokenCollection }

func (stalledCollection) FindOne(ctx context.Context, _ store.Filter) (*models.Vendor, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (stalledCollection) Find(ctx context.Context, _ store.Filter, _ int) ([]models.Vendor, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestCreateAndGetRoundTrip(t *testing.T) {
	s := newStore(t, newSQLiteCollection(t), store.Options{})
	ctx := context.Background()

	created, err := s.Create(ctx, store.NewVendor{
		VendorName:          "  ABC Corp ",
		ServiceProviderName: "John Smith",
		PhoneNumber:         "(123) 456-7890",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.Id)
	assert.Equal(t, "ABC Corp", created.VendorName)
	assert.Equal(t, "1234567890", created.PhoneNumber)
	assert.True(t, created.CreatedAt.Equal(created.UpdatedAt))

	got, err := s.Get(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, created.Id, got.Id)
	assert.Equal(t, created.VendorName, got.VendorName)
	assert.Equal(t, created.PhoneNumber, got.PhoneNumber)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
}

func TestCreateValidationError(t *testing.T) {
	s := newStore(t, newSQLiteCollection(t), store.Options{})

	_, err := s.Create(context.Background(), store.NewVendor{
		VendorName:          "ABC Corp",
		ServiceProviderName: "John Smith",
		PhoneNumber:         "123",
	})
	var verr *validation.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "phone_number", verr.Field)
	assert.Equal(t, validation.ReasonTooShort, verr.Reason)
}

func TestCreateRejectsDuplicates(t *testing.T) {
	s := newStore(t, newSQLiteCollection(t), store.Options{})
	ctx := context.Background()

	_, err := s.Create(ctx, store.NewVendor{VendorName: "ABC Corp", ServiceProviderName: "John", PhoneNumber: "1234567890"})
	require.NoError(t, err)

	_, err = s.Create(ctx, store.NewVendor{VendorName: "ABC Corp", ServiceProviderName: "Jane", PhoneNumber: "0987654321"})
	var conflict *store.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, store.DuplicateName, conflict.Kind)

	// same digits once punctuation is stripped
	_, err = s.Create(ctx, store.NewVendor{VendorName: "XYZ Corp", ServiceProviderName: "Jane", PhoneNumber: "(123) 456-7890"})
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, store.DuplicatePhone, conflict.Kind)
}

func TestConcurrentCreateSingleWinner(t *testing.T) {
	s := newStore(t, newSQLiteCollection(t), store.Options{})
	ctx := context.Background()

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Create(ctx, store.NewVendor{
				VendorName:          "Race Corp",
				ServiceProviderName: "Runner",
				PhoneNumber:         fmt.Sprintf("55500000%02d", i),
			})
			mu.Lock()
			defer mu.Unlock()
			var conflict *store.ConflictError
			switch {
			case err == nil:
				successes++
			case errors.As(err, &conflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)
}

func TestListNewestFirst(t *testing.T) {
	s := newStore(t, newSQLiteCollection(t), store.Options{})
	ctx := context.Background()

	for i, name := range []string{"First", "Second", "Third"} {
		_, err := s.Create(ctx, store.NewVendor{
			VendorName:          name,
			ServiceProviderName: "Owner",
			PhoneNumber:         fmt.Sprintf("555000000%d", i),
		})
		require.NoError(t, err)
	}

	vendors, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, vendors, 3)
	assert.Equal(t, "Third", vendors[0].VendorName)
	assert.Equal(t, "First", vendors[2].VendorName)

	vendors, err = s.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, vendors, 2)
	assert.False(t, s.InFallback())
}

func TestUpdate(t *testing.T) {
	s := newStore(t, newSQLiteCollection(t), store.Options{})
	ctx := context.Background()

	a, err := s.Create(ctx, store.NewVendor{VendorName: "Alpha", ServiceProviderName: "Al", PhoneNumber: "1111111111"})
	require.NoError(t, err)
	_, err = s.Create(ctx, store.NewVendor{VendorName: "Bravo", ServiceProviderName: "Bo", PhoneNumber: "2222222222"})
	require.NoError(t, err)

	name := " Alpha Prime "
	updated, err := s.Update(ctx, a.Id, store.VendorPatch{VendorName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Alpha Prime", updated.VendorName)
	assert.Equal(t, "1111111111", updated.PhoneNumber)
	assert.True(t, updated.UpdatedAt.After(a.UpdatedAt))

	// unchanged own phone is not a conflict
	own := "111-111-1111"
	_, err = s.Update(ctx, a.Id, store.VendorPatch{PhoneNumber: &own})
	require.NoError(t, err)

	taken := "(222) 222-2222"
	_, err = s.Update(ctx, a.Id, store.VendorPatch{PhoneNumber: &taken})
	var conflict *store.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, store.DuplicatePhone, conflict.Kind)

	takenName := "Bravo"
	_, err = s.Update(ctx, a.Id, store.VendorPatch{VendorName: &takenName})
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, store.DuplicateName, conflict.Kind)

	bad := "12ab"
	_, err = s.Update(ctx, a.Id, store.VendorPatch{PhoneNumber: &bad})
	var verr *validation.ValidationError
	require.True(t, errors.As(err, &verr))

	_, err = s.Update(ctx, "missing", store.VendorPatch{VendorName: &name})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetAndDeleteNotFound(t *testing.T) {
	s := newStore(t, newSQLiteCollection(t), store.Options{})
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "missing"), store.ErrNotFound)

	v, err := s.Create(ctx, store.NewVendor{VendorName: "Gone Soon", ServiceProviderName: "G", PhoneNumber: "3333333333"})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, v.Id))
	_, err = s.Get(ctx, v.Id)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSeedOnlyIntoEmptyCollection(t *testing.T) {
	s := newStore(t, newSQLiteCollection(t), store.Options{})
	ctx := context.Background()

	entries, err := store.SeedCatalog()
	require.NoError(t, err)

	res, err := s.Seed(ctx)
	require.NoError(t, err)
	assert.False(t, res.AlreadySeeded)
	assert.Equal(t, len(entries), res.Inserted)
	assert.Equal(t, fmt.Sprintf("Seeded %d vendors successfully", len(entries)), res.String())

	res, err = s.Seed(ctx)
	require.NoError(t, err)
	assert.True(t, res.AlreadySeeded)
	assert.Zero(t, res.Inserted)
	assert.EqualValues(t, len(entries), res.Total)
	assert.Equal(t, fmt.Sprintf("Database already has %d vendors", len(entries)), res.String())
}

func TestSeedCatalogEntriesAreValid(t *testing.T) {
	entries, err := store.SeedCatalog()
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	names := map[string]bool{}
	phones := map[string]bool{}
	for _, e := range entries {
		c, err := validation.Vendor(e.VendorName, e.ServiceProviderName, e.PhoneNumber)
		require.NoError(t, err, e.VendorName)
		assert.Equal(t, e.PhoneNumber, c.PhoneNumber, "catalog phones are stored normalized")
		assert.False(t, names[c.VendorName], "duplicate name %q", c.VendorName)
		assert.False(t, phones[c.PhoneNumber], "duplicate phone %q", c.PhoneNumber)
		names[c.VendorName] = true
		phones[c.PhoneNumber] = true
	}
}

func TestFallbackOnStorageError(t *testing.T) {
	s := newStore(t, brokenCollection{}, store.Options{FallbackEnabled: true})
	ctx := context.Background()

	vendors, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, store.DemoCatalog(), vendors)
	assert.True(t, s.InFallback())

	created, err := s.Create(ctx, store.NewVendor{VendorName: "Offline Co", ServiceProviderName: "O", PhoneNumber: "555-000-1111"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(created.Id, store.FallbackIDPrefix))
	assert.Equal(t, "5550001111", created.PhoneNumber)
	assert.EqualValues(t, 2, s.DegradedResponses())

	// validation still applies in fallback mode
	_, err = s.Create(ctx, store.NewVendor{VendorName: "", ServiceProviderName: "O", PhoneNumber: "5550001111"})
	var verr *validation.ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = s.Get(ctx, "anything")
	assert.ErrorIs(t, err, store.ErrStorageUnavailable)
}

func TestFallbackCreateEntersFallback(t *testing.T) {
	s := newStore(t, brokenCollection{}, store.Options{FallbackEnabled: true})

	created, err := s.Create(context.Background(), store.NewVendor{VendorName: "Offline Co", ServiceProviderName: "O", PhoneNumber: "5550001111"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(created.Id, store.FallbackIDPrefix))
	assert.True(t, s.InFallback())
}

func TestFallbackDisabledSurfacesErrors(t *testing.T) {
	s := newStore(t, brokenCollection{}, store.Options{})
	ctx := context.Background()

	_, err := s.List(ctx, 0)
	assert.ErrorIs(t, err, store.ErrStorageUnavailable)
	_, err = s.Create(ctx, store.NewVendor{VendorName: "Offline Co", ServiceProviderName: "O", PhoneNumber: "5550001111"})
	assert.ErrorIs(t, err, store.ErrStorageUnavailable)
	_, err = s.Seed(ctx)
	assert.ErrorIs(t, err, store.ErrStorageUnavailable)
	assert.ErrorIs(t, s.Ping(ctx), store.ErrStorageUnavailable)
	assert.False(t, s.InFallback())
}

func TestFallbackOnEmptyIsSticky(t *testing.T) {
	coll := newSQLiteCollection(t)
	s := newStore(t, coll, store.Options{FallbackEnabled: true, FallbackOnEmpty: true})
	ctx := context.Background()

	vendors, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, vendors, len(store.DemoCatalog()))
	require.True(t, s.InFallback())

	// creates are no longer persisted and storage recovering does not flip back
	_, err = s.Create(ctx, store.NewVendor{VendorName: "Late Co", ServiceProviderName: "L", PhoneNumber: "5559990000"})
	require.NoError(t, err)
	n, err := coll.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	vendors, err = s.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, vendors, 1)
	assert.True(t, s.InFallback())
}

func TestUpdateAndDeleteStillReachStorageInFallback(t *testing.T) {
	coll := newSQLiteCollection(t)
	s := newStore(t, coll, store.Options{FallbackEnabled: true, FallbackOnEmpty: true})
	ctx := context.Background()

	_, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.True(t, s.InFallback())

	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, coll.InsertOne(ctx, &models.Vendor{
		Id: "v-1", VendorName: "Kept Co", ServiceProviderName: "K",
		PhoneNumber: "5551230000", CreatedAt: now, UpdatedAt: now,
	}))

	renamed := "Renamed Co"
	updated, err := s.Update(ctx, "v-1", store.VendorPatch{VendorName: &renamed})
	require.NoError(t, err)
	assert.Equal(t, "Renamed Co", updated.VendorName)

	stored, err := coll.FindOne(ctx, store.Filter{"id": "v-1"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed Co", stored.VendorName)

	require.NoError(t, s.Delete(ctx, "v-1"))
	n, err := coll.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.True(t, s.InFallback())
}

func TestEmptyListWithoutFallbackOnEmpty(t *testing.T) {
	s := newStore(t, newSQLiteCollection(t), store.Options{FallbackEnabled: true})

	vendors, err := s.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, vendors)
	assert.NotNil(t, vendors)
	assert.False(t, s.InFallback())
}

func TestTimeoutIsStorageUnavailable(t *testing.T) {
	s := newStore(t, stalledCollection{}, store.Options{Timeout: 20 * time.Millisecond})
	ctx := context.Background()

	start := time.Now()
	_, err := s.Get(ctx, "any")
	assert.ErrorIs(t, err, store.ErrStorageUnavailable)
	assert.Less(t, time.Since(start), time.Second)

	_, err = s.Create(ctx, store.NewVendor{VendorName: "Slow Co", ServiceProviderName: "S", PhoneNumber: "5551112222"})
	assert.ErrorIs(t, err, store.ErrStorageUnavailable)
}
