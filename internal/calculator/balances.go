package calculator

import (
	"sort"

	"github.com/mmynk/splitledger/internal/models"
)

// MemberBalance represents the outstanding position of one group member.
type MemberBalance struct {
	UserID     string  `json:"userId"`
	NetBalance float64 `json:"netBalance"` // Positive = owed money, Negative = owes money
	OwedToUser float64 `json:"owedToUser"` // Outstanding amounts others owe this user
	UserOwes   float64 `json:"userOwes"`   // Outstanding amounts this user owes others
}

// DebtEdge represents a simplified debt from one person to another.
type DebtEdge struct {
	From   string  `json:"from"` // Person who owes
	To     string  `json:"to"`   // Person who is owed
	Amount float64 `json:"amount"`
}

// GroupBalances computes net balances from the remaining amounts of unsettled
// debts and returns a simplified set of transfers that would clear them.
//
// Algorithm:
// - For each unsettled debt: creditor is owed RemainingAmount, debtor owes it
// - net_balance = owed_to_user - user_owes
// - Edges: greedy matching of largest debtor against largest creditor
func GroupBalances(debts []*models.Debt) ([]MemberBalance, []DebtEdge) {
	balances := make(map[string]*MemberBalance)
	get := func(userID string) *MemberBalance {
		if b, ok := balances[userID]; ok {
			return b
		}
		b := &MemberBalance{UserID: userID}
		balances[userID] = b
		return b
	}

	for _, d := range debts {
		if d.Status == models.DebtSettled || d.RemainingAmount <= 0 {
			continue
		}
		get(d.From.UserID).UserOwes += d.RemainingAmount
		get(d.To.UserID).OwedToUser += d.RemainingAmount
	}

	memberBalances := make([]MemberBalance, 0, len(balances))
	var creditors, debtors []MemberBalance
	for _, bal := range balances {
		bal.NetBalance = bal.OwedToUser - bal.UserOwes
		memberBalances = append(memberBalances, *bal)
		if bal.NetBalance > 0.01 {
			creditors = append(creditors, *bal)
		} else if bal.NetBalance < -0.01 {
			debtors = append(debtors, *bal)
		}
	}
	sort.Slice(memberBalances, func(i, j int) bool { return memberBalances[i].UserID < memberBalances[j].UserID })
	sort.Slice(creditors, func(i, j int) bool { return byAmountDesc(creditors[i].NetBalance, creditors[j].NetBalance, creditors[i].UserID, creditors[j].UserID) })
	sort.Slice(debtors, func(i, j int) bool { return byAmountDesc(-debtors[i].NetBalance, -debtors[j].NetBalance, debtors[i].UserID, debtors[j].UserID) })

	// Greedy algorithm: match largest debts with largest credits
	var edges []DebtEdge
	i, j := 0, 0
	debtorLeft := make(map[string]float64, len(debtors))
	creditorLeft := make(map[string]float64, len(creditors))
	for _, d := range debtors {
		debtorLeft[d.UserID] = -d.NetBalance
	}
	for _, c := range creditors {
		creditorLeft[c.UserID] = c.NetBalance
	}

	for i < len(debtors) && j < len(creditors) {
		debtor := debtors[i].UserID
		creditor := creditors[j].UserID

		amount := debtorLeft[debtor]
		if creditorLeft[creditor] < amount {
			amount = creditorLeft[creditor]
		}
		if amount > 0.01 { // Avoid floating point noise
			edges = append(edges, DebtEdge{From: debtor, To: creditor, Amount: amount})
		}

		debtorLeft[debtor] -= amount
		creditorLeft[creditor] -= amount
		if debtorLeft[debtor] < 0.01 {
			i++
		}
		if creditorLeft[creditor] < 0.01 {
			j++
		}
	}

	return memberBalances, edges
}

func byAmountDesc(a, b float64, idA, idB string) bool {
	if a != b {
		return a > b
	}
	return idA < idB
}
