package fiscal

import (
	"github.com/smallbiznis/mercato/internal/cache"
	"github.com/smallbiznis/mercato/internal/fiscal/repository"
	"github.com/smallbiznis/mercato/internal/fiscal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("fiscal.service",
	fx.Provide(cache.NewFiscalConfigCache),
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
