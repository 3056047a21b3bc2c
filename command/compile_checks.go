package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[CreateAddressMessage]     = (*CreateAddressCommand)(nil)
	_ gocmd.Commander[CreateCalculationMessage] = (*CreateCalculationCommand)(nil)
	_ gocmd.Commander[CreateProductMessage]     = (*CreateProductCommand)(nil)
	_ gocmd.Commander[CreateSalesOrderMessage]  = (*CreateSalesOrderCommand)(nil)
	_ gocmd.Commander[InvalidateTokenMessage]   = (*InvalidateTokenCommand)(nil)
)
