package symbols

import "gainstaker/models"

// overrides lists pair strings whose prefix scan is ambiguous on Binance
// because a shorter ticker is embedded in a longer one (VIB/VIBE, IOST/IOTA,
// TUSD/TUSDB, ...). Entries are consulted before any other split.
var overrides = map[string]models.Pair{
	"IOTAETH":   {Quote: "IOTA", Base: "ETH"},
	"MDAETH":    {Quote: "MDA", Base: "ETH"},
	"VIBETH":    {Quote: "VIB", Base: "ETH"},
	"VIBEBTC":   {Quote: "VIBE", Base: "BTC"},
	"VIBEETH":   {Quote: "VIBE", Base: "ETH"},
	"AIONBTC":   {Quote: "AION", Base: "BTC"},
	"AIONETH":   {Quote: "AION", Base: "ETH"},
	"AIONBNB":   {Quote: "AION", Base: "BNB"},
	"ELFETH":    {Quote: "ELF", Base: "ETH"},
	"MANAETH":   {Quote: "MANA", Base: "ETH"},
	"ADAETH":    {Quote: "ADA", Base: "ETH"},
	"POAETH":    {Quote: "POA", Base: "ETH"},
	"THETAETH":  {Quote: "THETA", Base: "ETH"},
	"DATAETH":   {Quote: "DATA", Base: "ETH"},
	"NAVETH":    {Quote: "NAV", Base: "ETH"},
	"VIAETH":    {Quote: "VIA", Base: "ETH"},
	"IOSTBTC":   {Quote: "IOST", Base: "BTC"},
	"IOSTETH":   {Quote: "IOST", Base: "ETH"},
	"IOSTBNB":   {Quote: "IOST", Base: "BNB"},
	"IOSTUSDT":  {Quote: "IOST", Base: "USDT"},
	"WINGSBTC":  {Quote: "WINGS", Base: "BTC"},
	"WINGSETH":  {Quote: "WINGS", Base: "ETH"},
	"BTCBBTC":   {Quote: "BTCB", Base: "BTC"},
	"TUSDBNB":   {Quote: "TUSD", Base: "BNB"},
	"TUSDBTC":   {Quote: "TUSD", Base: "BTC"},
	"TUSDBTUSD": {Quote: "TUSDB", Base: "TUSD"},
	"EOSTUSD":   {Quote: "EOS", Base: "TUSD"},
	"ONTUSDT":   {Quote: "ONT", Base: "USDT"},
	"ONTUSDC":   {Quote: "ONT", Base: "USDC"},
	"ONTPAX":    {Quote: "ONT", Base: "PAX"},
	"VETUSDT":   {Quote: "VET", Base: "USDT"},
	"VETBNB":    {Quote: "VET", Base: "BNB"},
	"VETBTC":    {Quote: "VET", Base: "BTC"},
	"VETETH":    {Quote: "VET", Base: "ETH"},
	"BTTUSDT":   {Quote: "BTT", Base: "USDT"},
	"HOTUSDT":   {Quote: "HOT", Base: "USDT"},
	"FETUSDT":   {Quote: "FET", Base: "USDT"},
	"BATUSDT":   {Quote: "BAT", Base: "USDT"},
	"BATUSDC":   {Quote: "BAT", Base: "USDC"},
	"USDSBUSDT": {Quote: "USDSB", Base: "USDT"},
	"USDSBUSDS": {Quote: "USDSB", Base: "USDS"},
	"TFUELBNB":  {Quote: "TFUEL", Base: "BNB"},
	"TFUELBTC":  {Quote: "TFUEL", Base: "BTC"},
	"TFUELUSDT": {Quote: "TFUEL", Base: "USDT"},
	"TFUELUSDC": {Quote: "TFUEL", Base: "USDC"},
	"TFUELTUSD": {Quote: "TFUEL", Base: "TUSD"},
	"TFUELPAX":  {Quote: "TFUEL", Base: "PAX"},
	"NPXSUSDT":  {Quote: "NPXS", Base: "USDT"},
	"NPXSUSDC":  {Quote: "NPXS", Base: "USDC"},
	"BCPTUSDC":  {Quote: "BCPT", Base: "USDC"},
	"ALGOBNB":   {Quote: "ALGO", Base: "BNB"},
	"ALGOBTC":   {Quote: "ALGO", Base: "BTC"},
	"ALGOUSDT":  {Quote: "ALGO", Base: "USDT"},
	"ALGOTUSD":  {Quote: "ALGO", Base: "TUSD"},
	"ALGOPAX":   {Quote: "ALGO", Base: "PAX"},
	"ALGOUSDC":  {Quote: "ALGO", Base: "USDC"},
	"COCOSBNB":  {Quote: "COCOS", Base: "BNB"},
	"COCOSBTC":  {Quote: "COCOS", Base: "BTC"},
	"COCOSUSDT": {Quote: "COCOS", Base: "USDT"},
}

// Override returns the hardcoded split for symbol, if any.
func Override(symbol string) (models.Pair, bool) {
	p, ok := overrides[symbol]
	return p, ok
}
