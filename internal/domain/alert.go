package domain

// Alert описывает сообщение пользователю об ошибке камеры
type Alert struct {
	Kind    ErrorKind `json:"kind"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Button  string    `json:"button"`
}

// AlertFor возвращает сообщение для вида ошибки
func AlertFor(kind ErrorKind) Alert {
	switch kind {
	case KindUnauthorized:
		return Alert{
			Kind:    kind,
			Title:   "Camera access unauthorized",
			Message: "Grant access to the camera in System Settings to allow camera usage",
			Button:  "Ok",
		}
	case KindMissingDevice:
		return Alert{
			Kind:    kind,
			Title:   "Camera missing",
			Message: "No video camera found",
			Button:  "Ok",
		}
	default:
		return Alert{
			Kind:    KindConfigurationFailed,
			Title:   "Camera setup failed",
			Message: "There was an unexpected error setting up the camera. Please try again.",
			Button:  "Ok",
		}
	}
}
