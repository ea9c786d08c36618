package similarity

import "time"

// Metric names one image similarity measure.
type Metric string

const (
	MetricKeypoints  Metric = "keypoints"
	MetricStructural Metric = "structural"
	MetricHistogram  Metric = "histogram"
	MetricTemplate   Metric = "template"
	// MetricTitle appears in ComponentScores only; it is never weighted.
	MetricTitle Metric = "title"
)

// Metrics lists the weighted image metrics in evaluation order.
var Metrics = []Metric{MetricKeypoints, MetricStructural, MetricHistogram, MetricTemplate}

// Listing describes one marketplace listing.
type Listing struct {
	ID           string  `json:"id,omitempty"`
	Title        string  `json:"title,omitempty"`
	Link         string  `json:"link,omitempty"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency,omitempty"`
	SoldDate     string  `json:"sold_date,omitempty"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
}

// Source is the listing a user considers reselling. Price is in the profit
// model's source currency.
type Source struct {
	Listing
	Image ImageRef `json:"image"`
}

// Candidate is a listing on the comparison marketplace. Price is in the profit
// model's target currency.
type Candidate struct {
	Listing
	Image ImageRef `json:"image"`
}

// Diagnostics explains how a composite score was produced.
type Diagnostics struct {
	SourceKeypoints         int           `json:"source_keypoints"`
	CandidateKeypoints      int           `json:"candidate_keypoints"`
	Matches                 int           `json:"matches"`
	Inliers                 int           `json:"inliers,omitempty"`
	GeometricVerified       bool          `json:"geometric_verified,omitempty"`
	GeometricPenaltyApplied bool          `json:"geometric_penalty_applied,omitempty"`
	Excluded                []Metric      `json:"excluded,omitempty"`
	ImageScore              float64       `json:"image_score"`
	TitleBlended            bool          `json:"title_blended,omitempty"`
	Duration                time.Duration `json:"duration_ns"`
}

// ComparisonResult is the engine's verdict for one (source, candidate) pair.
type ComparisonResult struct {
	CandidateID           string             `json:"candidate_id"`
	SimilarityScore       float64            `json:"similarity_score"`
	ComponentScores       map[Metric]float64 `json:"component_scores"`
	EstimatedProfitMargin float64            `json:"estimated_profit_margin"`
	EstimatedProfitAmount float64            `json:"estimated_profit_amount"`
	ShippingCost          float64            `json:"shipping_cost"`
	Matched               bool               `json:"matched"`
	Source                Listing            `json:"source"`
	Candidate             Listing            `json:"candidate"`
	Diagnostics           Diagnostics        `json:"diagnostics"`
}

// Outcome carries either a result or a typed error for one batch candidate.
type Outcome struct {
	Index       int
	CandidateID string
	Result      ComparisonResult
	Err         error
}

// OK reports whether the comparison produced a result.
func (o Outcome) OK() bool { return o.Err == nil }
