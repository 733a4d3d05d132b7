package entrypoint

// SwapVenue binds a venue name to the adapter contract that trades there.
type SwapVenue struct {
	Name                   string `json:"name" toml:"name" yaml:"name"`
	AdapterContractAddress string `json:"adapter_contract_address" toml:"adapter_contract_address" yaml:"adapter_contract_address"`
}

type InstantiateMsg struct {
	SwapVenues                 []SwapVenue `json:"swap_venues" toml:"swap_venues" yaml:"swap_venues"`
	IbcTransferContractAddress string      `json:"ibc_transfer_contract_address" toml:"ibc_transfer_contract_address" yaml:"ibc_transfer_contract_address"`
	BlockedAddresses           []string    `json:"blocked_addresses,omitempty" toml:"blocked_addresses" yaml:"blocked_addresses,omitempty"`
}

type MigrateMsg struct{}

// ExecuteMsg is the entry point's command set. Exactly one field is set.
// UserSwap and PostSwapAction may only be sent by the contract itself.
type ExecuteMsg struct {
	SwapAndAction  *SwapAndActionMsg  `json:"swap_and_action,omitempty" yaml:"swap_and_action,omitempty"`
	Action         *ActionMsg         `json:"action,omitempty" yaml:"action,omitempty"`
	UserSwap       *UserSwapMsg       `json:"user_swap,omitempty" yaml:"user_swap,omitempty"`
	PostSwapAction *PostSwapActionMsg `json:"post_swap_action,omitempty" yaml:"post_swap_action,omitempty"`
	// Receive is the cw20 hook; its Msg decodes to a Cw20HookMsg.
	Receive        *Cw20ReceiveMsg    `json:"receive,omitempty" yaml:"-"`
}

// SwapAndActionMsg swaps the attached funds and hands the output, less
// affiliate fees, to PostSwapAction. Whatever fails after the request is
// accepted refunds RecoveryAddr (the sender when empty).
type SwapAndActionMsg struct {
	SentAsset        *Asset      `json:"sent_asset,omitempty" yaml:"sent_asset,omitempty"`
	UserSwap         Swap        `json:"user_swap" yaml:"user_swap"`
	MinAsset         Asset       `json:"min_asset" yaml:"min_asset"`
	TimeoutTimestamp uint64      `json:"timeout_timestamp" yaml:"timeout_timestamp"`
	PostSwapAction   Action      `json:"post_swap_action" yaml:"post_swap_action"`
	Affiliates       []Affiliate `json:"affiliates" yaml:"affiliates"`
	RecoveryAddr     string      `json:"recovery_addr,omitempty" yaml:"recovery_addr,omitempty"`
}

// ActionMsg performs an action on the attached funds without swapping.
// With ExactOut set only MinAsset is forwarded and the surplus is returned.
type ActionMsg struct {
	SentAsset        *Asset `json:"sent_asset,omitempty" yaml:"sent_asset,omitempty"`
	TimeoutTimestamp uint64 `json:"timeout_timestamp" yaml:"timeout_timestamp"`
	Action           Action `json:"action" yaml:"action"`
	ExactOut         bool   `json:"exact_out" yaml:"exact_out"`
	MinAsset         *Asset `json:"min_asset,omitempty" yaml:"min_asset,omitempty"`
	RecoveryAddr     string `json:"recovery_addr,omitempty" yaml:"recovery_addr,omitempty"`
}

// UserSwapMsg runs the user swap inside its own sub-call so that every
// effect of it, fee swap and exact-out refund included, reverts together.
type UserSwapMsg struct {
	Swap           Swap   `json:"swap"`
	RemainingAsset Asset  `json:"remaining_asset"`
	MinAsset       Asset  `json:"min_asset"`
	PostSwapAction Action `json:"post_swap_action"`
}

// PostSwapActionMsg performs the action with TransferOut.
type PostSwapActionMsg struct {
	TransferOut      Asset  `json:"transfer_out"`
	TimeoutTimestamp uint64 `json:"timeout_timestamp"`
	Action           Action `json:"action"`
}

type QueryMsg struct {
	SwapVenueAdapterContract   *SwapVenueAdapterContractQuery `json:"swap_venue_adapter_contract,omitempty"`
	IbcTransferAdapterContract *struct{}                      `json:"ibc_transfer_adapter_contract,omitempty"`
	SwapVenues                 *struct{}                      `json:"swap_venues,omitempty"`
	Phase                      *struct{}                      `json:"phase,omitempty"`
	ContractVersion            *struct{}                      `json:"contract_version,omitempty"`
}

type SwapVenueAdapterContractQuery struct {
	Name string `json:"name"`
}

// PhaseResponse answers QueryMsg.Phase.
type PhaseResponse struct {
	Phase Phase `json:"phase"`
}
