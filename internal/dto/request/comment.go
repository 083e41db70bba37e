package request

type CommentRequest struct {
	Text string `json:"text" validate:"required,min=1"`
}
