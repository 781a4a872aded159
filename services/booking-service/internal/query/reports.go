package query

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
)

type FeedbackSummary struct {
	Count          int         `json:"count"`
	AverageRating  float64     `json:"average_rating"`
	RatingCounts   map[int]int `json:"rating_counts"`
	ServiceQuality *float64    `json:"avg_service_quality,omitempty"`
	Punctuality    *float64    `json:"avg_punctuality,omitempty"`
	Cleanliness    *float64    `json:"avg_cleanliness,omitempty"`
}

type mean struct {
	sum, n int
}

func (m *mean) add(v *int) {
	if v != nil {
		m.sum += *v
		m.n++
	}
}

func (m mean) value() *float64 {
	if m.n == 0 {
		return nil
	}
	v := round2(float64(m.sum) / float64(m.n))
	return &v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// BusinessFeedback lists every rating left for the business, newest first.
func (s *Service) BusinessFeedback(ctx context.Context, businessID int64) ([]model.Feedback, error) {
	if _, err := s.business(ctx, businessID); err != nil {
		return nil, err
	}
	list, err := s.store.ListBusinessFeedback(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return list, nil
}

func (s *Service) BusinessFeedbackSummary(ctx context.Context, businessID int64) (FeedbackSummary, error) {
	if _, err := s.business(ctx, businessID); err != nil {
		return FeedbackSummary{}, err
	}
	list, err := s.store.ListBusinessFeedback(ctx, businessID)
	if err != nil {
		return FeedbackSummary{}, fmt.Errorf("list feedback: %w", err)
	}
	out := FeedbackSummary{RatingCounts: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	var quality, punctuality, cleanliness mean
	total := 0
	for _, f := range list {
		out.Count++
		out.RatingCounts[f.Rating]++
		total += f.Rating
		quality.add(f.ServiceQuality)
		punctuality.add(f.Punctuality)
		cleanliness.add(f.Cleanliness)
	}
	if out.Count > 0 {
		out.AverageRating = round2(float64(total) / float64(out.Count))
	}
	out.ServiceQuality = quality.value()
	out.Punctuality = punctuality.value()
	out.Cleanliness = cleanliness.value()
	return out, nil
}

type Granularity string

const (
	Daily   Granularity = "day"
	Weekly  Granularity = "week"
	Monthly Granularity = "month"
)

func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(s); g {
	case Daily, Weekly, Monthly:
		return g, nil
	case "":
		return Daily, nil
	}
	return "", model.Validation("granularity must be day, week or month")
}

type Period struct {
	Granularity Granularity
	Range       availability.DateRange
}

type RevenueBucket struct {
	Start        time.Time `json:"period_start"`
	Label        string    `json:"label"`
	AmountCents  int64     `json:"amount_cents"`
	Appointments int       `json:"appointments"`
}

// maxRevenueDays bounds revenue reports to roughly two years.
const maxRevenueDays = 731

// RevenueByPeriod sums completed payments of completed appointments per
// bucket of the business timezone. Every bucket in range is returned, empty
// ones with zero amounts.
func (s *Service) RevenueByPeriod(ctx context.Context, businessID int64, p Period) ([]RevenueBucket, error) {
	if p.Range.From.IsZero() || p.Range.To.IsZero() {
		return nil, model.Validation("date range is required")
	}
	if p.Range.To.Before(p.Range.From) {
		return nil, model.Validation("date range end is before its start")
	}
	if p.Range.To.Sub(p.Range.From) > maxRevenueDays*24*time.Hour {
		return nil, model.Validation("revenue range may cover at most %d days", maxRevenueDays)
	}
	biz, err := s.business(ctx, businessID)
	if err != nil {
		return nil, err
	}
	loc := biz.Location()
	from, to := p.Range.Bounds(loc)
	entries, err := s.store.ListRevenue(ctx, businessID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list revenue: %w", err)
	}

	var buckets []RevenueBucket
	index := map[int64]int{}
	for start := bucketStart(from, p.Granularity, loc); start.Before(to); start = nextBucket(start, p.Granularity) {
		index[start.Unix()] = len(buckets)
		buckets = append(buckets, RevenueBucket{Start: start, Label: bucketLabel(start, p.Granularity)})
	}
	for _, e := range entries {
		i, ok := index[bucketStart(e.StartTime, p.Granularity, loc).Unix()]
		if !ok {
			continue
		}
		buckets[i].AmountCents += e.AmountCents
		buckets[i].Appointments++
	}
	return buckets, nil
}

func bucketStart(t time.Time, g Granularity, loc *time.Location) time.Time {
	t = t.In(loc)
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	switch g {
	case Weekly:
		// weeks start on Monday
		offset := (int(day.Weekday()) + 6) % 7
		return time.Date(day.Year(), day.Month(), day.Day()-offset, 0, 0, 0, 0, loc)
	case Monthly:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, loc)
	}
	return day
}

func nextBucket(t time.Time, g Granularity) time.Time {
	switch g {
	case Weekly:
		return time.Date(t.Year(), t.Month(), t.Day()+7, 0, 0, 0, 0, t.Location())
	case Monthly:
		return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
	}
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
}

func bucketLabel(t time.Time, g Granularity) string {
	if g == Monthly {
		return t.Format("2006-01")
	}
	return t.Format(time.DateOnly)
}
