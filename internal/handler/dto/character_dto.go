package dto

// VoteRequest тело PUT /api/characters
type VoteRequest struct {
	Winner string `json:"winner" binding:"required"`
	Loser  string `json:"loser" binding:"required"`
}

// RegisterRequest тело POST /api/characters
type RegisterRequest struct {
	Name   string `json:"name" binding:"required"`
	Gender string `json:"gender" binding:"required"`
}

// TopQuery параметры GET /api/characters/top
type TopQuery struct {
	Race      string `form:"race"`
	Bloodline string `form:"bloodline"`
	Gender    string `form:"gender"`
	Limit     int    `form:"limit"`
}

// MessageResponse стандартный ответ с сообщением (в том числе об ошибке)
type MessageResponse struct {
	Message string `json:"message"`
}

// CountResponse ответ GET /api/characters/count
type CountResponse struct {
	Count int64 `json:"count"`
}

// ResetResponse ответ POST /api/admin/characters/reset
type ResetResponse struct {
	Message string `json:"message"`
	Reset   int64  `json:"reset"`
}
