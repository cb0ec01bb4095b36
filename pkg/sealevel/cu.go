package sealevel

const (
	CUCreateProgramAddressUnits                 = 1500
	CUInvokeUnits                               = 1000
	CUSystemProgramDefaultComputeUnits          = 150
	CUTokenProgramDefaultComputeUnits           = 2000
	CUAssociatedTokenProgramDefaultComputeUnits = 3000
)
