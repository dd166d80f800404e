package messaging

// ClipTaskPayload - задача для внешнего clip-preparation воркера:
// вырезать фрагмент [TrimStart, TrimEnd] из исходного клипа сцены.
type ClipTaskPayload struct {
	TaskID    string  `json:"task_id"`
	SceneID   string  `json:"scene_id"`
	VideoURL  string  `json:"video_url"`
	TrimStart float64 `json:"trim_start"`
	TrimEnd   float64 `json:"trim_end"`
}

// Статусы результата подготовки клипа.
const (
	ClipResultStatusSuccess = "success"
	ClipResultStatusError   = "error"
)

// ClipResultPayload - результат работы воркера. При ошибке TrimmedVideoURL пуст:
// сцена остается с исходным клипом, движок диалогов использует fallback.
type ClipResultPayload struct {
	TaskID          string `json:"task_id"`
	SceneID         string `json:"scene_id"`
	Status          string `json:"status"`
	TrimmedVideoURL string `json:"trimmed_video_url,omitempty"`
	ErrorDetails    string `json:"error_details,omitempty"`
}
