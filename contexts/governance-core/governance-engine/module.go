package governanceengine

import (
	"log/slog"

	httpadapter "agora/contexts/governance-core/governance-engine/adapters/http"
	"agora/contexts/governance-core/governance-engine/adapters/memory"
	"agora/contexts/governance-core/governance-engine/application/commands"
	"agora/contexts/governance-core/governance-engine/application/queries"
	"agora/contexts/governance-core/governance-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Engine  *commands.Engine
	Views   queries.Views
	Store   *memory.Store
}

type Dependencies struct {
	Members   ports.MembershipRegistry
	Proposals ports.ProposalRepository
	Treasury  ports.TreasuryLedger
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Config    commands.Config
	Logger    *slog.Logger
}

func NewModule(deps Dependencies) Module {
	engine := &commands.Engine{
		Members:   deps.Members,
		Proposals: deps.Proposals,
		Treasury:  deps.Treasury,
		Outbox:    deps.Outbox,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Config:    deps.Config,
		Logger:    deps.Logger,
	}
	views := queries.Views{
		Members:   deps.Members,
		Proposals: deps.Proposals,
		Treasury:  deps.Treasury,
		Clock:     deps.Clock,
	}
	return Module{
		Handler: httpadapter.Handler{
			Engine: engine,
			Views:  views,
			Logger: deps.Logger,
		},
		Engine: engine,
		Views:  views,
	}
}

func NewInMemoryModule(config commands.Config, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Members:   store,
		Proposals: store,
		Treasury:  store,
		Outbox:    store,
		Clock:     store,
		IDGen:     store,
		Config:    config,
		Logger:    logger,
	})
	module.Store = store
	return module
}
