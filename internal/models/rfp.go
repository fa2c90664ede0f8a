package models

type (
	RfpStage     string // Этап рассмотрения RFP
	RfpStatus    string // Статус RFP
	RfpWaitingOn string // Роль, которая должна действовать следующей
	UserRole     string // Роль пользователя
)

const (
	Discovery RfpStage = "Discovery"
	Tech      RfpStage = "Tech"
	Pricing   RfpStage = "Pricing"
	Approval  RfpStage = "Approval"
	Final     RfpStage = "Final"

	ActiveRfp    RfpStatus = "active"    // RFP в работе
	CompletedRfp RfpStatus = "completed" // RFP завершён
	AcceptedRfp  RfpStatus = "accepted"  // RFP принят клиентом
	RejectedRfp  RfpStatus = "rejected"  // RFP отклонён клиентом

	WaitingOnSales      RfpWaitingOn = "sales"
	WaitingOnTech       RfpWaitingOn = "tech"
	WaitingOnPricing    RfpWaitingOn = "pricing"
	WaitingOnManagement RfpWaitingOn = "management"
	WaitingOnCompleted  RfpWaitingOn = "completed"

	SalesRole      UserRole = "sales"
	TechRole       UserRole = "tech"
	PricingRole    UserRole = "pricing"
	ManagementRole UserRole = "management"
)

// StageOrder задаёт порядок этапов слева направо.
var StageOrder = []RfpStage{Discovery, Tech, Pricing, Approval, Final}

// WaitingOnValues перечисляет допустимые значения waitingOn.
var WaitingOnValues = []RfpWaitingOn{WaitingOnSales, WaitingOnTech, WaitingOnPricing, WaitingOnManagement, WaitingOnCompleted}

// Rfp представляет модель возможности (Request for Proposal).
type Rfp struct {
	ID           string       `json:"id"`
	Client       string       `json:"client"`
	Title        string       `json:"title"`
	Deadline     string       `json:"deadline"`
	DeadlineDate string       `json:"deadlineDate,omitempty"`
	Value        string       `json:"value"`
	Source       string       `json:"source,omitempty"`
	CurrentStage RfpStage     `json:"currentStage"`
	WaitingOn    RfpWaitingOn `json:"waitingOn"`
	Owner        string       `json:"owner,omitempty"`
	RiskFlag     bool         `json:"riskFlag"`
	SalesNotes   string       `json:"salesNotes,omitempty"`
	Status       RfpStatus    `json:"status,omitempty"`
}

// EffectiveStatus возвращает статус RFP; если он не задан, статус
// выводится из waitingOn.
func (r *Rfp) EffectiveStatus() RfpStatus {
	if r.Status != "" {
		return r.Status
	}
	if r.WaitingOn == WaitingOnCompleted {
		return CompletedRfp
	}
	return ActiveRfp
}

// RfpFilter представляет фильтры для выборки RFP из каталога.
// WaitingOn питает входящие списки специалистов.
type RfpFilter struct {
	Stages    []string
	WaitingOn string
	Owner     string
	Risky     bool
}
