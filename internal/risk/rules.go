package risk

// amountBand maps an amount floor to a weight and reason. Bands are mutually
// exclusive; the first (highest) matching band wins.
type amountBand struct {
	Min    float64
	Weight int
	Reason string
}

var amountBands = []amountBand{
	{Min: 1_000_000, Weight: 45, Reason: "very large amount"},
	{Min: 100_000, Weight: 30, Reason: "large amount"},
	{Min: 10_000, Weight: 15, Reason: "moderate amount"},
}

// procedureWeights assigns fixed weights to known high-risk procedure types.
// Anything else that names a procedure gets unknownProcedureWeight.
var procedureWeights = map[string]int{
	"QxAddToBidOrder":                       20,
	"QxTransferShareOwnershipAndPossession": 30,
	"SendToManyV1":                          35,
}

const unknownProcedureWeight = 5

// Wallet-history rule weights and thresholds.
const (
	newWalletTxCountMax   = 2
	newWalletAmountMin    = 10_000
	newWalletWeight       = 20
	abnormalTxCountMin    = 5
	abnormalAmountMin     = 50_000
	abnormalVolumeWeight  = 15
	burstTickDeltaMax     = 3
	burstWeight           = 20
	riskyHistoryAvgMin    = 60
	riskyHistoryWeight    = 10
	unseenWalletAmountMin = 10_000
	unseenWalletWeight    = 10
	selfTransferWeight    = 10
)
