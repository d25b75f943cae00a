package identity

import (
	"context"
)

const defaultTeacherPageSize = 20

// ListPendingTeachers returns a page of teacher accounts awaiting approval,
// ordered by creation time ascending, plus the total pending count. Only
// admins may call it.
func (s *Service) ListPendingTeachers(ctx context.Context, callerRole Role, limit, offset int) (*TeacherPage, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if callerRole != RoleAdmin {
		return nil, ErrForbidden
	}

	if limit <= 0 {
		limit = defaultTeacherPageSize
	}
	if offset < 0 {
		offset = 0
	}

	teachers, total, err := s.accounts.ListUnverifiedTeachers(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return &TeacherPage{Teachers: teachers, Total: total}, nil
}

// VerifyTeacher approves a pending teacher account. The transition is
// one-way and one-time: verifying a non-teacher or an already-verified
// teacher fails with [ErrConflict].
func (s *Service) VerifyTeacher(ctx context.Context, callerRole Role, userID string) (*UserAccount, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if callerRole != RoleAdmin {
		return nil, ErrForbidden
	}

	account, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if account.Role != RoleTeacher {
		return nil, ErrConflict
	}
	if account.IsVerified {
		return nil, ErrConflict
	}

	if err := s.accounts.SetVerified(ctx, userID, true); err != nil {
		return nil, err
	}
	account.IsVerified = true

	s.metricInc(MetricTeacherVerified)
	s.emitAudit(ctx, auditEventTeacherVerified, true, account.ID, account.Email, nil, nil)

	return account, nil
}
