package likes

// Status is what GET /:id/likes answers
type Status struct {
	GroupID int64 `json:"group_id"`
	Count   int64 `json:"count"`
	Liked   bool  `json:"liked"`
}
