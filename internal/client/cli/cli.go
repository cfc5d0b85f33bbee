package cli

import (
	"text/template"

	"github.com/iudanet/homekeeper/internal/client/auth"
	"github.com/iudanet/homekeeper/internal/client/errlog"
	"github.com/iudanet/homekeeper/internal/client/health"
	"github.com/iudanet/homekeeper/internal/client/iocli"
	"github.com/iudanet/homekeeper/internal/client/queue"
	"github.com/iudanet/homekeeper/internal/client/storage"
	"github.com/iudanet/homekeeper/internal/client/syncer"
)

type Cli struct {
	io          iocli.IO
	authManager *auth.Manager
	monitor     *health.Monitor
	queue       *queue.Queue
	replayer    *syncer.Replayer
	sink        *errlog.Sink
	guard       *storage.Guardian
}

func New(
	io iocli.IO,
	authManager *auth.Manager,
	monitor *health.Monitor,
	q *queue.Queue,
	replayer *syncer.Replayer,
	sink *errlog.Sink,
	guard *storage.Guardian,
) *Cli {
	return &Cli{
		io:          io,
		authManager: authManager,
		monitor:     monitor,
		queue:       q,
		replayer:    replayer,
		sink:        sink,
		guard:       guard,
	}
}

func (c *Cli) PrintUsage() {
	c.io.Printf("%s", usageTemplate)
}

// render выводит данные по текстовому шаблону
func (c *Cli) render(name, tmpl string, data any) error {
	t, err := template.New(name).Parse(tmpl)
	if err != nil {
		return err
	}
	return t.Execute(c.io, data)
}
