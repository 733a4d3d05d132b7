package entrypoint

import (
	"github.com/fortressi/entrypoint/chain"
)

// Action is what happens to the swapped asset. Exactly one field is set.
type Action struct {
	BankSend     *BankSendAction     `json:"bank_send,omitempty" yaml:"bank_send,omitempty"`
	IbcTransfer  *IbcTransferAction  `json:"ibc_transfer,omitempty" yaml:"ibc_transfer,omitempty"`
	ContractCall *ContractCallAction `json:"contract_call,omitempty" yaml:"contract_call,omitempty"`
}

type BankSendAction struct {
	ToAddress string `json:"to_address" yaml:"to_address"`
}

// IbcTransferAction sends the asset over IBC through the transfer adapter.
// FeeSwap, when set, buys the IBC relayer fee with part of the input.
type IbcTransferAction struct {
	IbcInfo IbcInfo            `json:"ibc_info" yaml:"ibc_info"`
	FeeSwap *SwapExactAssetOut `json:"fee_swap,omitempty" yaml:"fee_swap,omitempty"`
}

// ContractCallAction executes Msg on ContractAddress with the asset attached.
type ContractCallAction struct {
	ContractAddress string `json:"contract_address" yaml:"contract_address"`
	Msg             []byte `json:"msg" yaml:"msg"`
}

type IbcInfo struct {
	SourceChannel  string  `json:"source_channel" yaml:"source_channel"`
	Receiver       string  `json:"receiver" yaml:"receiver"`
	Fee            *IbcFee `json:"fee,omitempty" yaml:"fee,omitempty"`
	Memo           string  `json:"memo" yaml:"memo"`
	RecoverAddress string  `json:"recover_address" yaml:"recover_address"`
}

// IbcFee is the ICS-29 relayer fee paid alongside a transfer.
type IbcFee struct {
	RecvFee    chain.Coins `json:"recv_fee" yaml:"recv_fee"`
	AckFee     chain.Coins `json:"ack_fee" yaml:"ack_fee"`
	TimeoutFee chain.Coins `json:"timeout_fee" yaml:"timeout_fee"`
}

// Total sums the three fee components.
func (f IbcFee) Total() (chain.Coins, error) {
	var total chain.Coins
	var err error
	for _, group := range []chain.Coins{f.RecvFee, f.AckFee, f.TimeoutFee} {
		for _, c := range group {
			if total, err = total.Add(c); err != nil {
				return nil, err
			}
		}
	}
	return total, nil
}

// OneCoin returns the total fee, which must be in a single denom.
func (f IbcFee) OneCoin() (chain.Coin, error) {
	total, err := f.Total()
	if err != nil {
		return chain.Coin{}, err
	}
	if len(total) != 1 {
		return chain.Coin{}, validationFailedf(ErrIbcFeesNotOneCoin, "got %q", total)
	}
	return total[0], nil
}

func (a Action) validate() error {
	set := 0
	if a.BankSend != nil {
		set++
		if a.BankSend.ToAddress == "" {
			return validationFailedf(ErrInvalidAddress, "bank_send.to_address is empty")
		}
	}
	if a.IbcTransfer != nil {
		set++
		info := a.IbcTransfer.IbcInfo
		if info.SourceChannel == "" || info.Receiver == "" || info.RecoverAddress == "" {
			return validationFailedf(ErrInvalidMessage, "ibc_info needs source_channel, receiver and recover_address")
		}
	}
	if a.ContractCall != nil {
		set++
		if a.ContractCall.ContractAddress == "" {
			return validationFailedf(ErrInvalidAddress, "contract_call.contract_address is empty")
		}
	}
	if set != 1 {
		return validationFailed(ErrInvalidAction)
	}
	return nil
}

// ibcFee returns the single-coin fee of an IBC transfer action, if any.
func (a Action) ibcFee() (*chain.Coin, error) {
	if a.IbcTransfer == nil || a.IbcTransfer.IbcInfo.Fee == nil {
		return nil, nil
	}
	fee, err := a.IbcTransfer.IbcInfo.Fee.OneCoin()
	if err != nil {
		return nil, err
	}
	return &fee, nil
}

func (a Action) kind() string {
	switch {
	case a.BankSend != nil:
		return "bank_send"
	case a.IbcTransfer != nil:
		return "ibc_transfer"
	case a.ContractCall != nil:
		return "contract_call"
	default:
		return "none"
	}
}

// IBC transfer adapter wire messages.

type IbcAdapterExecuteMsg struct {
	IbcTransfer          *IbcTransferMsg       `json:"ibc_transfer,omitempty"`
	IbcLifecycleComplete *IbcLifecycleComplete `json:"ibc_lifecycle_complete,omitempty"`
}

type IbcTransferMsg struct {
	Info             IbcInfo    `json:"info"`
	Coin             chain.Coin `json:"coin"`
	TimeoutTimestamp uint64     `json:"timeout_timestamp"`
}

// IbcLifecycleComplete reports the fate of a previously sent packet.
type IbcLifecycleComplete struct {
	IbcAck     *IbcAck     `json:"ibc_ack,omitempty"`
	IbcTimeout *IbcTimeout `json:"ibc_timeout,omitempty"`
}

type IbcAck struct {
	Channel  string `json:"channel"`
	Sequence uint64 `json:"sequence"`
	Ack      string `json:"ack"`
	Success  bool   `json:"success"`
}

type IbcTimeout struct {
	Channel  string `json:"channel"`
	Sequence uint64 `json:"sequence"`
}

type IbcAdapterQueryMsg struct {
	InProgressIbcTransfer *InProgressIbcTransferQuery `json:"in_progress_ibc_transfer,omitempty"`
}

type InProgressIbcTransferQuery struct {
	ChannelID  string `json:"channel_id"`
	SequenceID uint64 `json:"sequence_id"`
}
