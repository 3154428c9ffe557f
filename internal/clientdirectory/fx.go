package clientdirectory

import (
	"github.com/smallbiznis/orderdesk/internal/clientdirectory/repository"
	"github.com/smallbiznis/orderdesk/internal/clientdirectory/service"
	"go.uber.org/fx"
)

var Module = fx.Module("clientdirectory.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
