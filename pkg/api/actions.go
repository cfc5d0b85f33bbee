package api

// ActionRequest представляет отложенное действие, воспроизводимое на
// платформе после восстановления связи. ClientRef — клиентский UUID
// действия, платформа использует его для дедупликации повторов.
type ActionRequest struct {
	Payload   map[string]any `json:"payload"`    // параметры операции
	ClientRef string         `json:"client_ref"` // UUID действия на клиенте
	Kind      string         `json:"kind"`       // вид действия
	QueuedAt  int64          `json:"queued_at"`  // unix время постановки в очередь
}
