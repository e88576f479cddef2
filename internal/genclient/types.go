package genclient

// OpenRouter-compatible chat completions payloads. Requests carry multimodal
// content parts; response messages carry plain text content plus an images
// array of data-URL parts.

const roleUser = "user"

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *apiError    `json:"error,omitempty"`
}

type chatChoice struct {
	Message responseMessage `json:"message"`
}

type responseMessage struct {
	Role    string        `json:"role"`
	Content string        `json:"content"`
	Images  []contentPart `json:"images"`
}

type apiError struct {
	Message string `json:"message"`
}
