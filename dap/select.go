package dap

import "context"

// bankSelector tracks the DP SELECT register's last-written bank so a
// banked DP access only issues a SELECT write when the bank actually
// changes.
type bankSelector struct {
	known bool
	bank  uint8
}

func (s *bankSelector) ensure(ctx context.Context, probe Probe, address RegisterAddress) error {
	bank, banked := address.Bank()
	if !banked || address.IsAP() {
		return nil
	}
	if s.known && s.bank == bank {
		return nil
	}

	sel := []DapTransfer{WriteTransfer(Select(), uint32(bank))}
	if err := PerformTransfers(ctx, probe, sel); err != nil {
		return err
	}
	if sel[0].Status.IsFailed() {
		return armError(sel[0].Status.Err())
	}

	s.known = true
	s.bank = bank
	return nil
}
