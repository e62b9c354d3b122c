package food

import (
	"context"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"greenbite/domain"
	"greenbite/entities"
	"greenbite/internal/utils/storage"
	"greenbite/pkg/detection"
	"greenbite/pkg/extraction"
	"greenbite/pkg/freshness"
	"greenbite/pkg/inventory"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
)

// DefaultShelfLifeDays is the expiry assigned to detected items, counted from
// the capture moment.
const DefaultShelfLifeDays = 7

// FrameSource yields one encoded JPEG frame. *camera.Session satisfies it.
type FrameSource interface {
	CaptureFrame(ctx context.Context) ([]byte, error)
}

type (
	FoodService interface {
		CaptureAndDetect(ctx context.Context, userID string, source FrameSource) (domain.DetectionResponse, error)
		DetectUploadedFrame(ctx context.Context, userID string, frame []byte) (domain.DetectionResponse, error)

		AddFoodItem(ctx context.Context, userID string, req domain.AddFoodItemRequest) (domain.FoodItemResponse, error)
		UpdateFoodItem(ctx context.Context, userID, itemID string, patch domain.FoodItemPatch) error
		DeleteFoodItem(ctx context.Context, userID, itemID string) error
		ToggleAlert(ctx context.Context, userID, itemID string, enabled bool) error
		GetFoodItems(ctx context.Context, userID string, now time.Time) ([]domain.FoodItemResponse, error)
		Watch(ctx context.Context, userID string, onChange func([]domain.FoodItemResponse)) (*inventory.Subscription, error)
		GetDashboardStats(ctx context.Context, userID string, now time.Time) (domain.DashboardStatsResponse, error)

		GetDraft(userID string) domain.Draft
		UpdateDraft(userID string, req domain.UpdateDraftRequest) domain.Draft
		DiscardDraft(userID string)
		EditFoodItem(ctx context.Context, userID, itemID string) (domain.Draft, error)
		ExtractDraftExpiry(ctx context.Context, userID, filename string, r io.Reader) (domain.Draft, error)
		SubmitDraft(ctx context.Context, userID string) (domain.SubmitDraftResponse, error)
	}

	foodService struct {
		store     inventory.InventoryStore
		detector  detection.Detector
		extractor extraction.Extractor
		s3        storage.AwsS3
		validator *validator.Validate
		drafts    *DraftBook
		now       func() time.Time
	}
)

// NewFoodService wires the inventory controller. s3 may be nil, in which
// case captured frames are not archived.
func NewFoodService(
	store inventory.InventoryStore,
	detector detection.Detector,
	extractor extraction.Extractor,
	s3 storage.AwsS3,
	validate *validator.Validate,
) FoodService {
	if validate == nil {
		validate = validator.New()
	}
	return &foodService{
		store:     store,
		detector:  detector,
		extractor: extractor,
		s3:        s3,
		validator: validate,
		drafts:    NewDraftBook(),
		now:       time.Now,
	}
}

func (s *foodService) CaptureAndDetect(ctx context.Context, userID string, source FrameSource) (domain.DetectionResponse, error) {
	frame, err := source.CaptureFrame(ctx)
	if err != nil {
		return domain.DetectionResponse{}, err
	}
	return s.detectAndCreate(ctx, userID, frame, s.now())
}

func (s *foodService) DetectUploadedFrame(ctx context.Context, userID string, frame []byte) (domain.DetectionResponse, error) {
	if len(frame) == 0 {
		return domain.DetectionResponse{}, fmt.Errorf("%w: empty frame", domain.ErrValidation)
	}
	return s.detectAndCreate(ctx, userID, frame, s.now())
}

// detectAndCreate persists the top prediction right away; there is no
// confirmation step. Wrong detections are fixed later with edit or delete.
func (s *foodService) detectAndCreate(ctx context.Context, userID string, frame []byte, capturedAt time.Time) (domain.DetectionResponse, error) {
	result, err := s.detector.Detect(ctx, frame)
	if err != nil {
		return domain.DetectionResponse{}, err
	}

	top, ok := result.Top()
	if !ok {
		log.Infof("detection: nothing detected for user %s", userID)
		return domain.DetectionResponse{Detected: false}, nil
	}

	expiry := freshness.FormatDate(capturedAt.AddDate(0, 0, DefaultShelfLifeDays))
	fields := domain.FoodItemFields{
		Name:       top.Item,
		Quantity:   1,
		ExpiryDate: &expiry,
		AddedDate:  freshness.FormatDate(capturedAt),
		Source:     entities.SourceDetection,
		ImageURL:   s.archiveFrame(ctx, userID, frame),
	}

	id, err := s.store.Create(ctx, userID, fields)
	if err != nil {
		return domain.DetectionResponse{}, err
	}

	item := toResponse(entities.FoodItem{
		ID:         id,
		UserID:     userID,
		Name:       fields.Name,
		Quantity:   fields.Quantity,
		ExpiryDate: fields.ExpiryDate,
		AddedDate:  fields.AddedDate,
		Source:     fields.Source,
		ImageURL:   fields.ImageURL,
	}, capturedAt)

	return domain.DetectionResponse{
		Detected:   true,
		Label:      top.Item,
		Confidence: top.Confidence,
		Item:       &item,
	}, nil
}

// archiveFrame uploads the frame when an archive is configured. Failures
// only lose the image link.
func (s *foodService) archiveFrame(ctx context.Context, userID string, frame []byte) string {
	if s.s3 == nil {
		return ""
	}
	objectKey, err := s.s3.UploadBytes(ctx, frame, path.Join("captures", userID), "image/jpeg", storage.AllowImage...)
	if err != nil {
		log.Warnf("archive frame for user %s: %v", userID, err)
		return ""
	}
	return s.s3.GetPublicLinkKey(objectKey)
}

func (s *foodService) AddFoodItem(ctx context.Context, userID string, req domain.AddFoodItemRequest) (domain.FoodItemResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return domain.FoodItemResponse{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	expiry, err := freshness.NormalizeDate(req.ExpiryDate)
	if err != nil {
		return domain.FoodItemResponse{}, fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrInvalidExpiryDate)
	}

	now := s.now()
	fields := domain.FoodItemFields{
		Name:       strings.TrimSpace(req.Name),
		Quantity:   req.Quantity,
		ExpiryDate: &expiry,
		AddedDate:  freshness.FormatDate(now),
		Source:     entities.SourceManual,
	}
	if fields.Name == "" {
		return domain.FoodItemResponse{}, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}

	id, err := s.store.Create(ctx, userID, fields)
	if err != nil {
		return domain.FoodItemResponse{}, err
	}

	return toResponse(entities.FoodItem{
		ID:         id,
		UserID:     userID,
		Name:       fields.Name,
		Quantity:   fields.Quantity,
		ExpiryDate: fields.ExpiryDate,
		AddedDate:  fields.AddedDate,
		Source:     fields.Source,
	}, now), nil
}

func (s *foodService) UpdateFoodItem(ctx context.Context, userID, itemID string, patch domain.FoodItemPatch) error {
	if err := s.validator.Struct(patch); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if patch.ExpiryDate != nil {
		if _, err := freshness.NormalizeDate(*patch.ExpiryDate); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrInvalidExpiryDate)
		}
	}
	patch.ImageURL = nil

	return s.store.Update(ctx, userID, itemID, patch)
}

// DeleteFoodItem removes the item and, best effort, its archived frame.
func (s *foodService) DeleteFoodItem(ctx context.Context, userID, itemID string) error {
	var imageURL string
	if s.s3 != nil {
		if item, err := s.store.Get(ctx, userID, itemID); err == nil {
			imageURL = item.ImageURL
		}
	}

	if err := s.store.Delete(ctx, userID, itemID); err != nil {
		return err
	}

	if imageURL != "" {
		if objectKey := s.s3.GetObjectKeyFromLink(imageURL); objectKey != "" {
			if err := s.s3.DeleteFile(ctx, objectKey); err != nil {
				log.Warnf("delete archived frame %s: %v", objectKey, err)
			}
		}
	}
	return nil
}

func (s *foodService) ToggleAlert(ctx context.Context, userID, itemID string, enabled bool) error {
	return s.store.ToggleAlert(ctx, userID, itemID, enabled)
}

func (s *foodService) GetFoodItems(ctx context.Context, userID string, now time.Time) ([]domain.FoodItemResponse, error) {
	items, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toResponses(items, now), nil
}

// Watch streams decorated snapshots. Freshness is computed at delivery time
// so a long lived subscription never shows a stale label.
func (s *foodService) Watch(ctx context.Context, userID string, onChange func([]domain.FoodItemResponse)) (*inventory.Subscription, error) {
	return s.store.Subscribe(ctx, userID, func(items []entities.FoodItem) {
		onChange(toResponses(items, s.now()))
	})
}

func (s *foodService) GetDashboardStats(ctx context.Context, userID string, now time.Time) (domain.DashboardStatsResponse, error) {
	items, err := s.store.List(ctx, userID)
	if err != nil {
		return domain.DashboardStatsResponse{}, err
	}

	var stats domain.DashboardStatsResponse
	for _, item := range items {
		stats.TotalItems++
		if item.AlertEnabled {
			stats.AlertEnabledItems++
		}
		switch freshness.ClassifyString(item.ExpiryDate, now).Label {
		case freshness.Fresh:
			stats.FreshItems++
		case freshness.ExpiringSoon:
			stats.ExpiringSoonItems++
		case freshness.Expired:
			stats.ExpiredItems++
		default:
			stats.UnknownItems++
		}
	}
	return stats, nil
}

func (s *foodService) GetDraft(userID string) domain.Draft {
	return s.drafts.Get(userID)
}

func (s *foodService) UpdateDraft(userID string, req domain.UpdateDraftRequest) domain.Draft {
	return s.drafts.Mutate(userID, func(d *domain.Draft) {
		if req.Name != nil {
			d.Name = *req.Name
		}
		if req.Quantity != nil {
			d.Quantity = *req.Quantity
		}
		if req.ExpiryDate != nil {
			if strings.TrimSpace(*req.ExpiryDate) == "" {
				d.ExpiryDate = nil
			} else {
				expiry := strings.TrimSpace(*req.ExpiryDate)
				d.ExpiryDate = &expiry
			}
		}
	})
}

func (s *foodService) DiscardDraft(userID string) {
	s.drafts.Reset(userID)
}

// EditFoodItem fills the draft from a stored item. No lock is taken on the
// item; a concurrent edit elsewhere is overwritten by whichever submit lands
// last.
func (s *foodService) EditFoodItem(ctx context.Context, userID, itemID string) (domain.Draft, error) {
	item, err := s.store.Get(ctx, userID, itemID)
	if err != nil {
		return domain.Draft{}, err
	}

	id := item.ID
	draft := domain.Draft{
		EditingID: &id,
		Name:      item.Name,
		Quantity:  strconv.Itoa(item.Quantity),
	}
	if item.ExpiryDate != nil {
		expiry := *item.ExpiryDate
		draft.ExpiryDate = &expiry
	}

	s.drafts.Set(userID, draft)
	return draft, nil
}

// ExtractDraftExpiry reads an expiry date off a label photo into the draft.
// When the service finds no date the draft is left as it was.
func (s *foodService) ExtractDraftExpiry(ctx context.Context, userID, filename string, r io.Reader) (domain.Draft, error) {
	expiry, err := s.extractor.ExtractExpiry(ctx, filename, r)
	if err != nil {
		return s.drafts.Get(userID), err
	}
	if expiry == nil {
		return s.drafts.Get(userID), domain.ErrNoExpiryFound
	}

	formatted := freshness.FormatDate(*expiry)
	return s.drafts.Mutate(userID, func(d *domain.Draft) {
		d.ExpiryDate = &formatted
	}), nil
}

// SubmitDraft validates the draft and saves it: an update when the draft
// was filled from an existing item, a create otherwise. The draft is reset
// only after the store accepted the write.
func (s *foodService) SubmitDraft(ctx context.Context, userID string) (domain.SubmitDraftResponse, error) {
	draft := s.drafts.Get(userID)

	name, quantity, expiry, err := s.validateDraft(draft)
	if err != nil {
		return domain.SubmitDraftResponse{}, err
	}

	if draft.EditingID != nil {
		patch := domain.FoodItemPatch{Name: &name, Quantity: &quantity, ExpiryDate: &expiry}
		if err := s.store.Update(ctx, userID, *draft.EditingID, patch); err != nil {
			return domain.SubmitDraftResponse{}, err
		}
		s.drafts.Reset(userID)
		return domain.SubmitDraftResponse{ID: *draft.EditingID, Updated: true}, nil
	}

	id, err := s.store.Create(ctx, userID, domain.FoodItemFields{
		Name:       name,
		Quantity:   quantity,
		ExpiryDate: &expiry,
		AddedDate:  freshness.FormatDate(s.now()),
		Source:     entities.SourceManual,
	})
	if err != nil {
		return domain.SubmitDraftResponse{}, err
	}
	s.drafts.Reset(userID)
	return domain.SubmitDraftResponse{ID: id}, nil
}

func (s *foodService) validateDraft(draft domain.Draft) (string, int, string, error) {
	submission := domain.DraftSubmission{
		Name:     strings.TrimSpace(draft.Name),
		Quantity: strings.TrimSpace(draft.Quantity),
	}
	if draft.ExpiryDate != nil {
		submission.ExpiryDate = strings.TrimSpace(*draft.ExpiryDate)
	}

	if err := s.validator.Struct(submission); err != nil {
		return "", 0, "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	quantity, err := strconv.Atoi(submission.Quantity)
	if err != nil || quantity <= 0 {
		return "", 0, "", fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrInvalidQuantity)
	}

	expiry, err := freshness.NormalizeDate(submission.ExpiryDate)
	if err != nil {
		return "", 0, "", fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrInvalidExpiryDate)
	}

	return submission.Name, quantity, expiry, nil
}

func toResponse(item entities.FoodItem, now time.Time) domain.FoodItemResponse {
	status := freshness.ClassifyString(item.ExpiryDate, now)
	return domain.FoodItemResponse{
		ID:           item.ID,
		Name:         item.Name,
		Quantity:     item.Quantity,
		ExpiryDate:   item.ExpiryDate,
		AddedDate:    item.AddedDate,
		AlertEnabled: item.AlertEnabled,
		Source:       item.Source,
		ImageURL:     item.ImageURL,
		Freshness: domain.Freshness{
			Label:    string(status.Label),
			Severity: status.Severity.String(),
		},
	}
}

func toResponses(items []entities.FoodItem, now time.Time) []domain.FoodItemResponse {
	res := make([]domain.FoodItemResponse, 0, len(items))
	for _, item := range items {
		res = append(res, toResponse(item, now))
	}
	return res
}
