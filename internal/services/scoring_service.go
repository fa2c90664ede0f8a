package services

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Anushre2005/swiftbid/internal/models"
	"github.com/Anushre2005/swiftbid/internal/repository"
)

// catalogLimit ограничивает размер выборки каталога для дашбордов.
const catalogLimit = 200

// winProbabilityByStage - вероятность выигрыша, подразумеваемая этапом.
var winProbabilityByStage = map[models.RfpStage]float64{
	models.Discovery: 0.35,
	models.Tech:      0.55,
	models.Pricing:   0.65,
	models.Approval:  0.72,
	models.Final:     0.82,
}

var (
	nonNumericPattern    = regexp.MustCompile(`[^0-9.]`)
	leadingNumberPattern = regexp.MustCompile(`^([0-9]+(\.[0-9]*)?|\.[0-9]+)`)
)

// Days - число дней до дедлайна. Отсутствие валидной даты кодируется
// как +Inf и сериализуется в null.
type Days float64

// MarshalJSON сериализует бесконечность как null.
func (d Days) MarshalJSON() ([]byte, error) {
	if math.IsInf(float64(d), 1) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(d))
}

// ScoredRfp представляет RFP с вычисленными оценками для дашборда продаж.
type ScoredRfp struct {
	models.Rfp
	DealSize          float64 `json:"dealSize"`
	DaysUntilDeadline Days    `json:"daysUntilDeadline"`
	WinProbability    float64 `json:"winProbability"`
	PriorityScore     int     `json:"priorityScore"`
	QuickWin          bool    `json:"quickWin"`
	StrategicBet      bool    `json:"strategicBet"`
}

// DashboardFilter представляет фильтры дашборда продаж. Все фильтры
// комбинируются логическим И; focus применяется последним.
type DashboardFilter struct {
	Search     string
	Filter     string // all | highValue | closingSoon
	Stage      string
	ValueRange string // all | lt1 | 1to3 | gt3
	Urgency    string // all | soon | month
	Owner      string
	RiskOnly   bool
	Focus      string // all | quickWins | strategicBets
}

// DashboardView представляет ответ дашборда продаж.
type DashboardView struct {
	Rfps                []ScoredRfp `json:"rfps"`
	RecommendedToday    []ScoredRfp `json:"recommendedToday"`
	Owners              []string    `json:"owners"`
	ActiveCount         int         `json:"activeCount"`
	PipelineValue       float64     `json:"pipelineValue"`
	ApproachingDeadline int         `json:"approachingDeadline"`
	RiskFlagged         int         `json:"riskFlagged"`
}

// ManagementSummary представляет сводку для управленческого дашборда
// по всему каталогу, включая завершённые RFP.
type ManagementSummary struct {
	Rfps                []models.Rfp            `json:"rfps"`
	TotalRfps           int                     `json:"totalRfps"`
	Completed           int                     `json:"completed"`
	InProgress          int                     `json:"inProgress"`
	PipelineValue       float64                 `json:"pipelineValue"`
	ByStage             map[models.RfpStage]int `json:"byStage"`
	ApproachingDeadline int                     `json:"approachingDeadline"`
	RiskFlagged         int                     `json:"riskFlagged"`
}

// ScoringService вычисляет приоритеты RFP. Все расчёты являются чистой
// функцией от снимка каталога и момента времени now.
type ScoringService struct {
	Rfps repository.RfpRepository
	now  func() time.Time
}

// NewScoringService создаёт новый экземпляр ScoringService.
func NewScoringService(rfps repository.RfpRepository) *ScoringService {
	return &ScoringService{Rfps: rfps, now: time.Now}
}

// ParseValueToMillions извлекает число из отображаемой стоимости и
// нормализует его к миллионам: значения >= 100 считаются записанными в
// меньших единицах и делятся на 1000. Все нечисловые символы, включая
// разделители групп, отбрасываются до разбора ("₹ 1,200" -> 1200 -> 1.2).
func ParseValueToMillions(value string) float64 {
	stripped := nonNumericPattern.ReplaceAllString(value, "")
	match := leadingNumberPattern.FindString(stripped)
	if match == "" {
		return 0
	}
	numeric, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	if numeric >= 100 {
		return numeric / 1000
	}
	return numeric
}

// DaysUntil возвращает число дней до даты дедлайна, округлённое вверх.
// Невалидная или пустая дата дает +Inf.
func DaysUntil(now time.Time, dateString string) float64 {
	if dateString == "" {
		return math.Inf(1)
	}
	target, err := time.Parse("2006-01-02", dateString)
	if err != nil {
		return math.Inf(1)
	}
	return math.Ceil(target.Sub(now).Hours() / 24)
}

// ScoreRfps вычисляет оценки для активного набора RFP.
func ScoreRfps(rfps []models.Rfp, now time.Time) []ScoredRfp {
	var active []models.Rfp
	for _, rfp := range rfps {
		if rfp.EffectiveStatus() == models.ActiveRfp {
			active = append(active, rfp)
		}
	}

	maxValue := 1.0
	for _, rfp := range active {
		if dealSize := ParseValueToMillions(rfp.Value); dealSize > maxValue {
			maxValue = dealSize
		}
	}

	var scored []ScoredRfp
	for _, rfp := range active {
		days := DaysUntil(now, rfp.DeadlineDate)
		dealSize := ParseValueToMillions(rfp.Value)
		dealSizeScore := math.Min(dealSize/maxValue, 1)
		urgencyScore := math.Max(0, math.Min(1, (30-math.Min(days, 30))/30))
		winProbability, ok := winProbabilityByStage[rfp.CurrentStage]
		if !ok {
			winProbability = 0.5
		}
		riskBonus := 0.2
		if rfp.RiskFlag {
			riskBonus = 0.4
		}
		strategicImportance := math.Min(1, dealSizeScore*0.6+riskBonus)
		priorityScore := int(math.Round(
			(urgencyScore*0.3 + dealSizeScore*0.3 + winProbability*0.25 + strategicImportance*0.15) * 100))

		quickWin := winProbability >= 0.65 &&
			days <= 21 &&
			dealSize <= 3 &&
			!rfp.RiskFlag

		strategicBet := dealSize >= 3 &&
			(rfp.RiskFlag || winProbability < 0.65) &&
			days <= 45

		scored = append(scored, ScoredRfp{
			Rfp:               rfp,
			DealSize:          dealSize,
			DaysUntilDeadline: Days(days),
			WinProbability:    winProbability,
			PriorityScore:     priorityScore,
			QuickWin:          quickWin,
			StrategicBet:      strategicBet,
		})
	}
	return scored
}

// applyFilters применяет фильтры дашборда к вычисленному набору.
func applyFilters(scored []ScoredRfp, filter DashboardFilter, now time.Time) ([]ScoredRfp, error) {
	data := scored

	if strings.TrimSpace(filter.Search) != "" {
		term := strings.ToLower(filter.Search)
		data = keep(data, func(rfp ScoredRfp) bool {
			return strings.Contains(strings.ToLower(rfp.Client), term) ||
				strings.Contains(strings.ToLower(rfp.Title), term)
		})
	}

	switch filter.Filter {
	case "", "all":
	case "highValue":
		data = keep(data, func(rfp ScoredRfp) bool { return rfp.DealSize >= 5 })
	case "closingSoon":
		if len(data) > 3 {
			data = data[:3]
		}
	default:
		return nil, models.NewValidationError("invalid filter, must be 'all', 'highValue' or 'closingSoon'")
	}

	if filter.Stage != "" && filter.Stage != "all" {
		if _, ok := winProbabilityByStage[models.RfpStage(filter.Stage)]; !ok {
			return nil, models.NewValidationError("invalid stage filter")
		}
		data = keep(data, func(rfp ScoredRfp) bool { return rfp.CurrentStage == models.RfpStage(filter.Stage) })
	}

	switch filter.ValueRange {
	case "", "all":
	case "lt1":
		data = keep(data, func(rfp ScoredRfp) bool { return rfp.DealSize < 1 })
	case "1to3":
		data = keep(data, func(rfp ScoredRfp) bool { return rfp.DealSize >= 1 && rfp.DealSize <= 3 })
	case "gt3":
		data = keep(data, func(rfp ScoredRfp) bool { return rfp.DealSize > 3 })
	default:
		return nil, models.NewValidationError("invalid value range, must be 'all', 'lt1', '1to3' or 'gt3'")
	}

	switch filter.Urgency {
	case "", "all":
	case "soon":
		data = keep(data, func(rfp ScoredRfp) bool { return DaysUntil(now, rfp.DeadlineDate) <= 7 })
	case "month":
		data = keep(data, func(rfp ScoredRfp) bool { return DaysUntil(now, rfp.DeadlineDate) <= 30 })
	default:
		return nil, models.NewValidationError("invalid urgency, must be 'all', 'soon' or 'month'")
	}

	if filter.Owner != "" && filter.Owner != "all" {
		data = keep(data, func(rfp ScoredRfp) bool { return rfp.Owner == filter.Owner })
	}

	if filter.RiskOnly {
		data = keep(data, func(rfp ScoredRfp) bool { return rfp.RiskFlag })
	}

	switch filter.Focus {
	case "", "all":
	case "quickWins":
		data = keep(data, func(rfp ScoredRfp) bool { return rfp.QuickWin })
	case "strategicBets":
		data = keep(data, func(rfp ScoredRfp) bool { return rfp.StrategicBet })
	default:
		return nil, models.NewValidationError("invalid focus, must be 'all', 'quickWins' or 'strategicBets'")
	}

	sort.SliceStable(data, func(i, j int) bool {
		if data[i].PriorityScore != data[j].PriorityScore {
			return data[i].PriorityScore > data[j].PriorityScore
		}
		return data[i].DaysUntilDeadline < data[j].DaysUntilDeadline
	})
	return data, nil
}

// Dashboard строит дашборд продаж: ранжированный активный набор,
// рекомендации на сегодня и сводные показатели.
func (s *ScoringService) Dashboard(ctx context.Context, filter DashboardFilter) (*DashboardView, error) {
	rfps, err := s.Rfps.GetRfps(ctx, catalogLimit, 0, models.RfpFilter{})
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusInternalServerError, "failed to fetch rfps")
	}

	now := s.now()
	scored := ScoreRfps(rfps, now)

	pipelineValue := 0.0
	for _, rfp := range scored {
		pipelineValue += rfp.DealSize
	}

	seen := make(map[string]bool)
	var owners []string
	for _, rfp := range scored {
		if rfp.Owner != "" && !seen[rfp.Owner] {
			seen[rfp.Owner] = true
			owners = append(owners, rfp.Owner)
		}
	}

	filtered, err := applyFilters(scored, filter, now)
	if err != nil {
		return nil, err
	}

	approaching := 0
	flagged := 0
	for _, rfp := range filtered {
		if DaysUntil(now, rfp.DeadlineDate) <= 7 {
			approaching++
		}
		if rfp.RiskFlag {
			flagged++
		}
	}

	var recommended []ScoredRfp
	for _, rfp := range filtered {
		if float64(rfp.DaysUntilDeadline) <= 14 || rfp.QuickWin {
			recommended = append(recommended, rfp)
		}
		if len(recommended) == 3 {
			break
		}
	}

	return &DashboardView{
		Rfps:                filtered,
		RecommendedToday:    recommended,
		Owners:              owners,
		ActiveCount:         len(scored),
		PipelineValue:       pipelineValue,
		ApproachingDeadline: approaching,
		RiskFlagged:         flagged,
	}, nil
}

// Summary строит управленческую сводку по всему каталогу.
func (s *ScoringService) Summary(ctx context.Context, filter DashboardFilter) (*ManagementSummary, error) {
	rfps, err := s.Rfps.GetRfps(ctx, catalogLimit, 0, models.RfpFilter{})
	if err != nil {
		return nil, models.NewErrorResponse(http.StatusInternalServerError, "failed to fetch rfps")
	}

	now := s.now()
	byStage := map[models.RfpStage]int{
		models.Discovery: 0,
		models.Tech:      0,
		models.Pricing:   0,
		models.Approval:  0,
		models.Final:     0,
	}

	pipelineValue := 0.0
	completed := 0
	for _, rfp := range rfps {
		pipelineValue += ParseValueToMillions(rfp.Value)
		byStage[rfp.CurrentStage]++
		if rfp.WaitingOn == models.WaitingOnCompleted {
			completed++
		}
	}

	filtered := rfps
	if filter.Stage != "" && filter.Stage != "all" {
		filtered = keepRfps(filtered, func(rfp models.Rfp) bool { return rfp.CurrentStage == models.RfpStage(filter.Stage) })
	}
	switch filter.ValueRange {
	case "", "all":
	case "lt1":
		filtered = keepRfps(filtered, func(rfp models.Rfp) bool { return ParseValueToMillions(rfp.Value) < 1 })
	case "1to3":
		filtered = keepRfps(filtered, func(rfp models.Rfp) bool {
			dealSize := ParseValueToMillions(rfp.Value)
			return dealSize >= 1 && dealSize <= 3
		})
	case "gt3":
		filtered = keepRfps(filtered, func(rfp models.Rfp) bool { return ParseValueToMillions(rfp.Value) > 3 })
	default:
		return nil, models.NewValidationError("invalid value range, must be 'all', 'lt1', '1to3' or 'gt3'")
	}
	switch filter.Urgency {
	case "", "all":
	case "soon":
		filtered = keepRfps(filtered, func(rfp models.Rfp) bool { return DaysUntil(now, rfp.DeadlineDate) <= 7 })
	case "month":
		filtered = keepRfps(filtered, func(rfp models.Rfp) bool { return DaysUntil(now, rfp.DeadlineDate) <= 30 })
	default:
		return nil, models.NewValidationError("invalid urgency, must be 'all', 'soon' or 'month'")
	}
	if filter.Owner != "" && filter.Owner != "all" {
		filtered = keepRfps(filtered, func(rfp models.Rfp) bool { return rfp.Owner == filter.Owner })
	}
	if filter.RiskOnly {
		filtered = keepRfps(filtered, func(rfp models.Rfp) bool { return rfp.RiskFlag })
	}

	approaching := 0
	flagged := 0
	for _, rfp := range filtered {
		if DaysUntil(now, rfp.DeadlineDate) <= 7 {
			approaching++
		}
		if rfp.RiskFlag {
			flagged++
		}
	}

	return &ManagementSummary{
		Rfps:                filtered,
		TotalRfps:           len(rfps),
		Completed:           completed,
		InProgress:          len(rfps) - completed,
		PipelineValue:       pipelineValue,
		ByStage:             byStage,
		ApproachingDeadline: approaching,
		RiskFlagged:         flagged,
	}, nil
}

func keep(data []ScoredRfp, predicate func(ScoredRfp) bool) []ScoredRfp {
	var result []ScoredRfp
	for _, rfp := range data {
		if predicate(rfp) {
			result = append(result, rfp)
		}
	}
	return result
}

func keepRfps(data []models.Rfp, predicate func(models.Rfp) bool) []models.Rfp {
	var result []models.Rfp
	for _, rfp := range data {
		if predicate(rfp) {
			result = append(result, rfp)
		}
	}
	return result
}
