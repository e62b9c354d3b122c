// Package alert e-mails users about alert-enabled items that are expiring
// soon or already expired.
package alert

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sort"
	"sync"
	"time"

	"greenbite/entities"
	"greenbite/internal/utils/mailing"
	"greenbite/pkg/freshness"

	"github.com/gofiber/fiber/v2/log"
)

const subject = "GreenBite: food items need your attention"

var bodyTemplate = template.Must(template.New("alert").Parse(`<p>Hi,</p>
<p>These items in your GreenBite inventory need attention:</p>
<ul>
{{range .Items}}<li><b>{{.Name}}</b> (x{{.Quantity}}): {{.Label}}, expiry {{.ExpiryDate}}</li>
{{end}}</ul>
<p>Open GreenBite to update or remove them.</p>
`))

type (
	ItemSource interface {
		ListAlertEnabled(ctx context.Context) ([]entities.FoodItem, error)
	}

	Recipients interface {
		GetEmails(ctx context.Context, userIDs []string) (map[string]string, error)
	}
)

// Report summarises one sweep.
type Report struct {
	Users   int
	Mailed  int
	Items   int
	Skipped int
	Failed  int
}

type alertLine struct {
	Name       string
	Quantity   int
	Label      freshness.Label
	ExpiryDate string
}

// Sweeper sends at most one notice per item and expiry date. The memory of
// sent notices lives in the process.
type Sweeper struct {
	items      ItemSource
	recipients Recipients
	mailer     mailing.Mailer
	now        func() time.Time

	mu   sync.Mutex
	sent map[string]string
}

func NewSweeper(items ItemSource, recipients Recipients, mailer mailing.Mailer) *Sweeper {
	return &Sweeper{
		items:      items,
		recipients: recipients,
		mailer:     mailer,
		now:        time.Now,
		sent:       make(map[string]string),
	}
}

func (s *Sweeper) SweepOnce(ctx context.Context) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report Report
	items, err := s.items.ListAlertEnabled(ctx)
	if err != nil {
		return report, err
	}

	now := s.now()
	live := make(map[string]struct{}, len(items))
	pending := make(map[string][]entities.FoodItem)
	for _, item := range items {
		live[item.ID] = struct{}{}
		if item.ExpiryDate == nil {
			continue
		}
		status := freshness.ClassifyString(item.ExpiryDate, now)
		if status.Label != freshness.ExpiringSoon && status.Label != freshness.Expired {
			continue
		}
		if s.sent[item.ID] == *item.ExpiryDate {
			continue
		}
		pending[item.UserID] = append(pending[item.UserID], item)
	}

	// Forget items that were deleted or had their alert switched off, so a
	// re-enabled alert notifies again.
	for id := range s.sent {
		if _, ok := live[id]; !ok {
			delete(s.sent, id)
		}
	}

	if len(pending) == 0 {
		return report, nil
	}

	userIDs := make([]string, 0, len(pending))
	for userID := range pending {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)
	report.Users = len(userIDs)

	emails, err := s.recipients.GetEmails(ctx, userIDs)
	if err != nil {
		return report, fmt.Errorf("lookup recipients: %w", err)
	}

	for _, userID := range userIDs {
		userItems := pending[userID]
		email, ok := emails[userID]
		if !ok {
			log.Infof("alert: user %s has no e-mail, skipping %d items", userID, len(userItems))
			report.Skipped++
			continue
		}

		body, err := renderBody(userItems, now)
		if err != nil {
			return report, err
		}
		if err := s.mailer.SendMail(email, subject, body); err != nil {
			log.Errorf("alert: mail to user %s failed: %v", userID, err)
			report.Failed++
			continue
		}

		for _, item := range userItems {
			s.sent[item.ID] = *item.ExpiryDate
		}
		report.Mailed++
		report.Items += len(userItems)
	}

	return report, nil
}

// Run sweeps immediately and then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		report, err := s.SweepOnce(ctx)
		if err != nil {
			log.Errorf("alert sweep failed: %v", err)
		} else if report.Mailed > 0 || report.Failed > 0 {
			log.Infof("alert sweep: mailed %d users about %d items, %d failed, %d skipped",
				report.Mailed, report.Items, report.Failed, report.Skipped)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func renderBody(items []entities.FoodItem, now time.Time) (string, error) {
	sort.Slice(items, func(i, j int) bool {
		return *items[i].ExpiryDate < *items[j].ExpiryDate
	})

	lines := make([]alertLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, alertLine{
			Name:       item.Name,
			Quantity:   item.Quantity,
			Label:      freshness.ClassifyString(item.ExpiryDate, now).Label,
			ExpiryDate: *item.ExpiryDate,
		})
	}

	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, struct{ Items []alertLine }{Items: lines}); err != nil {
		return "", fmt.Errorf("render alert body: %w", err)
	}
	return buf.String(), nil
}
