package models

type (
	ChangeRequestStatus string // Статус запроса на изменения
	CommentTrack        string // Направление комментариев
)

const (
	PendingRequest  ChangeRequestStatus = "pending"  // Запрос создан, ожидает правок
	RevisedRequest  ChangeRequestStatus = "revised"  // Правки внесены, ожидает одобрения
	ApprovedRequest ChangeRequestStatus = "approved" // Запрос одобрен

	TechTrack    CommentTrack = "tech"
	PricingTrack CommentTrack = "pricing"
)

// ChangeRequest представляет запрос специалиста на доработку RFP.
type ChangeRequest struct {
	ID           string              `json:"id"`
	RfpID        string              `json:"-"`
	RequestedBy  UserRole            `json:"requestedBy"`
	Timestamp    string              `json:"timestamp"`
	WhatChanges  string              `json:"whatChanges"`
	Why          string              `json:"why"`
	Effect       string              `json:"effect"`
	HowItMatters string              `json:"howItMatters"`
	Status       ChangeRequestStatus `json:"status"`
}

// ChangeRequestFields представляет структуру запроса для создания запроса на изменения.
type ChangeRequestFields struct {
	WhatChanges  string `json:"whatChanges"`
	Why          string `json:"why"`
	Effect       string `json:"effect"`
	HowItMatters string `json:"howItMatters"`
}

// Comment представляет заметку от отдела продаж для одной из команд.
type Comment struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// CommentRequest представляет структуру запроса для создания комментария.
type CommentRequest struct {
	Text string `json:"text"`
}
