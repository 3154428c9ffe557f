package lockpolicy

import (
	"github.com/smallbiznis/orderdesk/internal/authorization"
	"go.uber.org/fx"
)

var Module = fx.Module("lockpolicy",
	fx.Provide(func(svc authorization.Service) Overrides { return svc }),
	fx.Provide(New),
)
