package query

import (
	"github.com/goliatone/go-cerm/core"
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Querier[FetchAddressIDMessage, core.AddressIDResult]         = (*FetchAddressIDQuery)(nil)
	_ gocmd.Querier[GetAddressMessage, core.AddressDetailsResult]        = (*GetAddressQuery)(nil)
	_ gocmd.Querier[FetchCalculationIDMessage, core.CalculationIDResult] = (*FetchCalculationIDQuery)(nil)
	_ gocmd.Querier[ValidateAddressMessage, core.ValidationResult]       = (*ValidateAddressQuery)(nil)
	_ gocmd.Querier[ListActivityMessage, core.ActivityPage]              = (*ListActivityQuery)(nil)
)
