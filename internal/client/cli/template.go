package cli

const usageTemplate = `
HomeKeeper Client

Usage:
  homekeeper [OPTIONS] COMMAND

Options:
  --version        Show version information
  --server URL     Platform URL (default: http://localhost:8080)
  --realtime URL   Realtime endpoint (default: derived from --server)
  --db PATH        Path to local database (default: homekeeper-client.db)

Commands:
  status           Show connection, session, queue and storage status
  probe            Force a reachability probe right now
  sync             Replay the offline action queue
  queue list       List queued offline actions
  queue clear      Drop all queued offline actions
  logs show        Show the persisted error log
  logs clear       Clear the persisted error log
  session set      Import a session token pair (interactive)
  session clear    Forget the stored session
  watch            Follow connection status changes until interrupted

Examples:
  homekeeper status
  homekeeper sync
  homekeeper queue list
  homekeeper --server https://example.com probe
`

const queueListTemplate = `
=== Offline Action Queue ===

{{- if eq (len .) 0 }}
Queue is empty.
{{ else }}
{{len .}} action(s) waiting to be replayed:

{{- range . }}
- {{ .Kind }}
   ID:       {{ .ID }}
   Enqueued: {{ .EnqueuedAt.Format "2006-01-02T15:04:05Z07:00" }}
   {{- if gt .RetryCount 0 }}
   Retries:  {{ .RetryCount }}
   {{- end }}

{{- end }}
Run 'homekeeper sync' to replay them in order.
{{- end }}
`

const logsListTemplate = `
=== Error Log ===

{{- if eq (len .) 0 }}
No entries.
{{ else }}
{{len .}} entry(ies), oldest first:

{{- range . }}
- [{{ .Level }}] {{ .Timestamp.Format "2006-01-02T15:04:05Z07:00" }} {{ .Message }}
   {{- if .Error }}
   Error: {{ .Error.Name }}: {{ .Error.Message }}
   {{- end }}

{{- end }}
{{- end }}
`
