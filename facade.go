package sessions

import (
	"fmt"

	sessionscommand "github.com/goliatone/go-sessions/command"
	sessionsquery "github.com/goliatone/go-sessions/query"
)

// CommandQueryService is the full lifecycle surface the facade wraps:
// the mutating operations plus the read side.
type CommandQueryService interface {
	sessionscommand.MutatingService
	sessionsquery.StatusReader
	sessionsquery.SessionLister
}

// Commands bundles the mutating lifecycle commands so downstream apps
// can register the full set against a dispatcher in one pass.
type Commands struct {
	GenerateCode *sessionscommand.GenerateCodeCommand
	Connect      *sessionscommand.ConnectCommand
	ForceRepair  *sessionscommand.ForceRepairCommand
	Disconnect   *sessionscommand.DisconnectCommand
	Delete       *sessionscommand.DeleteCommand
}

type Queries struct {
	Status       *sessionsquery.StatusQuery
	ListSessions *sessionsquery.ListSessionsQuery
	GetSession   *sessionsquery.GetSessionQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	recordReader sessionsquery.RecordReader
}

// WithRecordReader wires the durable record lookup query; pass the
// session store when record inspection should be exposed.
func WithRecordReader(reader sessionsquery.RecordReader) FacadeOption {
	return func(options *facadeOptions) {
		options.recordReader = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("sessions: lifecycle service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.recordReader
	if reader == nil {
		if candidate, ok := service.(sessionsquery.RecordReader); ok {
			reader = candidate
		}
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		GenerateCode: sessionscommand.NewGenerateCodeCommand(service),
		Connect:      sessionscommand.NewConnectCommand(service),
		ForceRepair:  sessionscommand.NewForceRepairCommand(service),
		Disconnect:   sessionscommand.NewDisconnectCommand(service),
		Delete:       sessionscommand.NewDeleteCommand(service),
	}
	facade.queries = Queries{
		Status:       sessionsquery.NewStatusQuery(service),
		ListSessions: sessionsquery.NewListSessionsQuery(service),
		GetSession:   sessionsquery.NewGetSessionQuery(reader),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
