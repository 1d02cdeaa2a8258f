package services

import (
	"context"

	"sacco-backend/internal/adapters/persistence/repositories"
	"sacco-backend/internal/core/domain"
)

// DashboardService handles dashboard operations
type DashboardService struct {
	store repositories.Store
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(store repositories.Store) *DashboardService {
	return &DashboardService{store: store}
}

// DashboardSummary represents cooperative-wide figures
type DashboardSummary struct {
	// Members
	TotalMembers   int64 `json:"total_members"`
	PendingMembers int64 `json:"pending_members"`

	// Ledger
	TotalSavings        string `json:"total_savings"`
	TotalEmergencyFund  string `json:"total_emergency_fund"`
	PendingTransactions int64  `json:"pending_transactions"`

	// Loans
	Loans []LoanStatusSummary `json:"loans"`
}

// LoanStatusSummary represents loans grouped by status
type LoanStatusSummary struct {
	Status    string `json:"status"`
	Count     int64  `json:"count"`
	Principal string `json:"principal"`
}

// Summary returns the dashboard figures
func (s *DashboardService) Summary(ctx context.Context, actor Actor) (*DashboardSummary, error) {
	if !actor.Can(domain.CapViewReports) {
		return nil, domain.ErrForbidden
	}

	sum, err := s.store.Reports().Summary(ctx)
	if err != nil {
		return nil, err
	}

	out := &DashboardSummary{
		TotalMembers:        sum.TotalMembers,
		PendingMembers:      sum.PendingMembers,
		TotalSavings:        sum.TotalSavings.StringFixed(2),
		TotalEmergencyFund:  sum.TotalEmergencyFund.StringFixed(2),
		PendingTransactions: sum.PendingTransactions,
		Loans:               make([]LoanStatusSummary, 0, len(sum.Loans)),
	}
	for _, l := range sum.Loans {
		out.Loans = append(out.Loans, LoanStatusSummary{
			Status:    l.Status,
			Count:     l.Count,
			Principal: l.Principal.StringFixed(2),
		})
	}
	return out, nil
}
