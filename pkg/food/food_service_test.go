package food

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"greenbite/domain"
	"greenbite/entities"
	"greenbite/pkg/detection"
	"greenbite/pkg/freshness"
	"greenbite/pkg/inventory"
	"greenbite/pkg/inventory/inventorytest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userID = "user-1"

var captureMoment = time.Date(2024, time.January, 3, 9, 30, 0, 0, time.UTC)

type fakeDetector struct {
	result detection.Result
	err    error
	frames [][]byte
}

func (f *fakeDetector) Detect(_ context.Context, image []byte) (detection.Result, error) {
	f.frames = append(f.frames, image)
	return f.result, f.err
}

type fakeExtractor struct {
	expiry *time.Time
	err    error
	read   string
}

func (f *fakeExtractor) ExtractExpiry(_ context.Context, _ string, r io.Reader) (*time.Time, error) {
	b, _ := io.ReadAll(r)
	f.read = string(b)
	return f.expiry, f.err
}

type fakeFrameSource struct {
	frame []byte
	err   error
}

func (f fakeFrameSource) CaptureFrame(context.Context) ([]byte, error) {
	return f.frame, f.err
}

type fakeArchive struct {
	mu        sync.Mutex
	uploadErr error
	uploaded  []string
	deleted   []string
}

func (f *fakeArchive) UploadBytes(_ context.Context, _ []byte, folder string, _ string, _ ...string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	key := folder + "/frame.jpg"
	f.uploaded = append(f.uploaded, key)
	return key, nil
}

func (f *fakeArchive) DeleteFile(_ context.Context, objectKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, objectKey)
	return nil
}

func (f *fakeArchive) GetPublicLinkKey(objectKey string) string {
	return "https://frames.example/" + objectKey
}

func (f *fakeArchive) GetObjectKeyFromLink(link string) string {
	return strings.TrimPrefix(link, "https://frames.example/")
}

type fixture struct {
	svc       *foodService
	store     inventory.InventoryStore
	repo      *inventorytest.MemoryRepository
	detector  *fakeDetector
	extractor *fakeExtractor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := inventorytest.NewMemoryRepository()
	store := inventory.NewInventoryStore(repo, inventory.NewHub(repo.GetFoodItems), nil)
	detector := &fakeDetector{}
	extractor := &fakeExtractor{}

	svc := NewFoodService(store, detector, extractor, nil, nil).(*foodService)
	svc.now = func() time.Time { return captureMoment }

	return &fixture{svc: svc, store: store, repo: repo, detector: detector, extractor: extractor}
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestCaptureAndDetectCreatesItem(t *testing.T) {
	f := newFixture(t)
	f.detector.result = detection.Result{Predictions: []detection.Prediction{{Item: "Apple", Confidence: 0.91}}}

	res, err := f.svc.CaptureAndDetect(context.Background(), userID, fakeFrameSource{frame: []byte{0xff, 0xd8}})
	require.NoError(t, err)

	assert.True(t, res.Detected)
	assert.Equal(t, "Apple", res.Label)
	require.NotNil(t, res.Item)
	assert.Equal(t, []byte{0xff, 0xd8}, f.detector.frames[0])

	items, err := f.store.List(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Apple", items[0].Name)
	assert.Equal(t, 1, items[0].Quantity)
	require.NotNil(t, items[0].ExpiryDate)
	assert.Equal(t, "2024/01/10", *items[0].ExpiryDate)
	assert.Equal(t, "2024/01/03", items[0].AddedDate)
	assert.Equal(t, entities.SourceDetection, items[0].Source)
	assert.Equal(t, string(freshness.ExpiringSoon), res.Item.Freshness.Label)
}

func TestCaptureAndDetectNothingDetected(t *testing.T) {
	f := newFixture(t)
	f.detector.result = detection.Result{}

	res, err := f.svc.CaptureAndDetect(context.Background(), userID, fakeFrameSource{frame: []byte{1}})
	require.NoError(t, err)
	assert.False(t, res.Detected)
	assert.Nil(t, res.Item)

	items, err := f.store.List(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCaptureAndDetectFailures(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CaptureAndDetect(context.Background(), userID, fakeFrameSource{err: domain.ErrCapture})
	assert.ErrorIs(t, err, domain.ErrCapture)
	assert.Empty(t, f.detector.frames, "detector not called without a frame")

	f.detector.err = domain.ErrDetectionService
	_, err = f.svc.CaptureAndDetect(context.Background(), userID, fakeFrameSource{frame: []byte{1}})
	assert.ErrorIs(t, err, domain.ErrDetectionService)

	f.detector.err = nil
	f.detector.result = detection.Result{Predictions: []detection.Prediction{{Item: "Apple"}}}
	_, err = f.svc.CaptureAndDetect(context.Background(), "", fakeFrameSource{frame: []byte{1}})
	assert.ErrorIs(t, err, domain.ErrPersistence)

	items, err := f.store.List(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDetectUploadedFrameArchivesImage(t *testing.T) {
	f := newFixture(t)
	archive := &fakeArchive{}
	f.svc.s3 = archive
	f.detector.result = detection.Result{Predictions: []detection.Prediction{{Item: "Banana"}}}

	res, err := f.svc.DetectUploadedFrame(context.Background(), userID, []byte{0xff, 0xd8})
	require.NoError(t, err)
	require.NotNil(t, res.Item)
	assert.Equal(t, "https://frames.example/captures/user-1/frame.jpg", res.Item.ImageURL)

	require.NoError(t, f.svc.DeleteFoodItem(context.Background(), userID, res.Item.ID))
	assert.Equal(t, []string{"captures/user-1/frame.jpg"}, archive.deleted)
}

func TestArchiveFailureDoesNotBlockRecord(t *testing.T) {
	f := newFixture(t)
	f.svc.s3 = &fakeArchive{uploadErr: errors.New("bucket gone")}
	f.detector.result = detection.Result{Predictions: []detection.Prediction{{Item: "Kiwi"}}}

	res, err := f.svc.DetectUploadedFrame(context.Background(), userID, []byte{1})
	require.NoError(t, err)
	assert.Empty(t, res.Item.ImageURL)

	_, err = f.svc.DetectUploadedFrame(context.Background(), userID, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAddFoodItem(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.AddFoodItem(context.Background(), userID, domain.AddFoodItemRequest{
		Name: "Milk", Quantity: 2, ExpiryDate: "2024-01-10",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "2024/01/10", *res.ExpiryDate)
	assert.Equal(t, "2024/01/03", res.AddedDate)

	_, err = f.svc.AddFoodItem(context.Background(), userID, domain.AddFoodItemRequest{Name: "Milk", Quantity: 0, ExpiryDate: "2024/01/10"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.svc.AddFoodItem(context.Background(), userID, domain.AddFoodItemRequest{Name: "Milk", Quantity: 1, ExpiryDate: "tomorrow"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.svc.AddFoodItem(context.Background(), userID, domain.AddFoodItemRequest{Name: "   ", Quantity: 1, ExpiryDate: "2024/01/10"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	items, err := f.store.List(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestUpdateFoodItemValidation(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.AddFoodItem(context.Background(), userID, domain.AddFoodItemRequest{Name: "Milk", Quantity: 2, ExpiryDate: "2024/01/10"})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.UpdateFoodItem(context.Background(), userID, res.ID, domain.FoodItemPatch{Quantity: intPtr(0)}), domain.ErrValidation)
	assert.ErrorIs(t, f.svc.UpdateFoodItem(context.Background(), userID, res.ID, domain.FoodItemPatch{ExpiryDate: strPtr("soon")}), domain.ErrValidation)
	assert.ErrorIs(t, f.svc.UpdateFoodItem(context.Background(), userID, "missing", domain.FoodItemPatch{Quantity: intPtr(1)}), domain.ErrPersistence)

	require.NoError(t, f.svc.UpdateFoodItem(context.Background(), userID, res.ID, domain.FoodItemPatch{Quantity: intPtr(5)}))
	item, err := f.store.Get(context.Background(), userID, res.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)
	assert.Equal(t, "Milk", item.Name)
}

func TestGetFoodItemsDecoratesAtRenderTime(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AddFoodItem(context.Background(), userID, domain.AddFoodItemRequest{Name: "Milk", Quantity: 2, ExpiryDate: "2024/01/10"})
	require.NoError(t, err)

	items, err := f.svc.GetFoodItems(context.Background(), userID, captureMoment)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, string(freshness.ExpiringSoon), items[0].Freshness.Label)
	assert.Equal(t, "medium", items[0].Freshness.Severity)

	items, err = f.svc.GetFoodItems(context.Background(), userID, captureMoment.AddDate(0, 0, 8))
	require.NoError(t, err)
	assert.Equal(t, string(freshness.Expired), items[0].Freshness.Label)
}

func TestWatchDeliversDecoratedSnapshots(t *testing.T) {
	f := newFixture(t)

	updates := make(chan []domain.FoodItemResponse, 8)
	sub, err := f.svc.Watch(context.Background(), userID, func(items []domain.FoodItemResponse) {
		updates <- items
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	assert.Empty(t, <-updates)

	_, err = f.svc.AddFoodItem(context.Background(), userID, domain.AddFoodItemRequest{Name: "Milk", Quantity: 2, ExpiryDate: "2024/02/10"})
	require.NoError(t, err)

	select {
	case items := <-updates:
		require.Len(t, items, 1)
		assert.Equal(t, string(freshness.Fresh), items[0].Freshness.Label)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after create")
	}
}

func TestGetDashboardStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, req := range []domain.AddFoodItemRequest{
		{Name: "Old bread", Quantity: 1, ExpiryDate: "2024/01/01"},
		{Name: "Milk", Quantity: 1, ExpiryDate: "2024/01/05"},
		{Name: "Rice", Quantity: 1, ExpiryDate: "2025/01/01"},
	} {
		_, err := f.svc.AddFoodItem(ctx, userID, req)
		require.NoError(t, err)
	}
	_, err := f.store.Create(ctx, userID, domain.FoodItemFields{Name: "Salt", Quantity: 1})
	require.NoError(t, err)

	items, err := f.store.List(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, f.svc.ToggleAlert(ctx, userID, items[1].ID, true))

	stats, err := f.svc.GetDashboardStats(ctx, userID, captureMoment)
	require.NoError(t, err)
	assert.Equal(t, domain.DashboardStatsResponse{
		TotalItems:        4,
		FreshItems:        1,
		ExpiringSoonItems: 1,
		ExpiredItems:      1,
		UnknownItems:      1,
		AlertEnabledItems: 1,
	}, stats)
}

func TestDraftSubmitCreates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft := f.svc.UpdateDraft(userID, domain.UpdateDraftRequest{Name: strPtr("Yogurt"), Quantity: strPtr("3")})
	assert.Equal(t, "Yogurt", draft.Name)
	assert.Nil(t, draft.ExpiryDate)

	_, err := f.svc.SubmitDraft(ctx, userID)
	assert.ErrorIs(t, err, domain.ErrValidation, "expiry is required")

	f.svc.UpdateDraft(userID, domain.UpdateDraftRequest{ExpiryDate: strPtr("2024/01/20")})
	res, err := f.svc.SubmitDraft(ctx, userID)
	require.NoError(t, err)
	assert.False(t, res.Updated)

	item, err := f.store.Get(ctx, userID, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "Yogurt", item.Name)
	assert.Equal(t, 3, item.Quantity)
	assert.Equal(t, domain.Draft{}, f.svc.GetDraft(userID), "draft reset after submit")
}

func TestDraftValidationNeverReachesStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []domain.UpdateDraftRequest{
		{Name: strPtr(""), Quantity: strPtr("1"), ExpiryDate: strPtr("2024/01/20")},
		{Name: strPtr("Tea"), Quantity: strPtr("two"), ExpiryDate: strPtr("2024/01/20")},
		{Name: strPtr("Tea"), Quantity: strPtr("0"), ExpiryDate: strPtr("2024/01/20")},
		{Name: strPtr("Tea"), Quantity: strPtr("1"), ExpiryDate: strPtr("20th")},
	}
	for _, c := range cases {
		f.svc.DiscardDraft(userID)
		f.svc.UpdateDraft(userID, c)
		_, err := f.svc.SubmitDraft(ctx, userID)
		assert.ErrorIs(t, err, domain.ErrValidation)
	}

	items, err := f.store.List(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDraftKeptWhenStoreRejects(t *testing.T) {
	f := newFixture(t)
	f.svc.UpdateDraft(userID, domain.UpdateDraftRequest{Name: strPtr("Tea"), Quantity: strPtr("1"), ExpiryDate: strPtr("2024/01/20")})
	f.repo.Err = errors.New("quota exceeded")

	_, err := f.svc.SubmitDraft(context.Background(), userID)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Equal(t, "Tea", f.svc.GetDraft(userID).Name)
}

func TestEditThenSubmitUpdatesInPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	added, err := f.svc.AddFoodItem(ctx, userID, domain.AddFoodItemRequest{Name: "Milk", Quantity: 2, ExpiryDate: "2024/01/10"})
	require.NoError(t, err)

	draft, err := f.svc.EditFoodItem(ctx, userID, added.ID)
	require.NoError(t, err)
	require.NotNil(t, draft.EditingID)
	assert.Equal(t, added.ID, *draft.EditingID)
	assert.Equal(t, "2", draft.Quantity)
	assert.Equal(t, "2024/01/10", *draft.ExpiryDate)

	f.svc.UpdateDraft(userID, domain.UpdateDraftRequest{Quantity: strPtr("1")})
	res, err := f.svc.SubmitDraft(ctx, userID)
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.Equal(t, added.ID, res.ID)

	items, err := f.store.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, items, 1, "edit does not duplicate")
	assert.Equal(t, 1, items[0].Quantity)

	_, err = f.svc.EditFoodItem(ctx, userID, "missing")
	assert.ErrorIs(t, err, domain.ErrFoodItemNotFound)
}

func TestExtractDraftExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.UpdateDraft(userID, domain.UpdateDraftRequest{Name: strPtr("Cheese")})

	expiry := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	f.extractor.expiry = &expiry
	draft, err := f.svc.ExtractDraftExpiry(ctx, userID, "label.jpg", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "2024/03/05", *draft.ExpiryDate)
	assert.Equal(t, "Cheese", draft.Name)
	assert.Equal(t, "jpeg-bytes", f.extractor.read)

	f.extractor.expiry = nil
	draft, err = f.svc.ExtractDraftExpiry(ctx, userID, "label.jpg", strings.NewReader("x"))
	assert.ErrorIs(t, err, domain.ErrNoExpiryFound)
	assert.Equal(t, "2024/03/05", *draft.ExpiryDate, "absent date leaves draft unchanged")

	f.extractor.err = domain.ErrExtractionService
	_, err = f.svc.ExtractDraftExpiry(ctx, userID, "label.jpg", strings.NewReader("x"))
	assert.ErrorIs(t, err, domain.ErrExtractionService)
	assert.Equal(t, "2024/03/05", *f.svc.GetDraft(userID).ExpiryDate)
}

func TestDraftsArePerUser(t *testing.T) {
	f := newFixture(t)

	f.svc.UpdateDraft("a", domain.UpdateDraftRequest{Name: strPtr("Tea")})
	f.svc.UpdateDraft("b", domain.UpdateDraftRequest{Name: strPtr("Coffee")})
	assert.Equal(t, "Tea", f.svc.GetDraft("a").Name)
	assert.Equal(t, "Coffee", f.svc.GetDraft("b").Name)

	f.svc.DiscardDraft("a")
	assert.Equal(t, domain.Draft{}, f.svc.GetDraft("a"))
	assert.Equal(t, "Coffee", f.svc.GetDraft("b").Name)

	draft := f.svc.UpdateDraft("b", domain.UpdateDraftRequest{ExpiryDate: strPtr("2024/01/01")})
	require.NotNil(t, draft.ExpiryDate)
	draft = f.svc.UpdateDraft("b", domain.UpdateDraftRequest{ExpiryDate: strPtr("")})
	assert.Nil(t, draft.ExpiryDate)
}
