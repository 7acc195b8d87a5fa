package providers

import (
	"github.com/smallbiznis/waterbill/internal/providers/delivery"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	delivery.Module,
)
