package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cct-academy/course-portal/database"
	"github.com/cct-academy/course-portal/model"
	"github.com/cct-academy/course-portal/services/supabase"
)

// AccessTypeFunction is the database function classifying a user's access
const AccessTypeFunction = "user_tipo_acesso"

// AccessStatus combines the database's access classification with the
// expiry and detail of the user's latest subscription, when still running.
func (s *SubscriptionService) AccessStatus(ctx context.Context, email string) (*model.AccessStatus, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, invalid("email is required")
	}

	var raw json.RawMessage
	if err := s.store.RPC(ctx, AccessTypeFunction, map[string]interface{}{
		"email_usuario": email,
	}, &raw); err != nil {
		return nil, fmt.Errorf("access type lookup failed: %w", err)
	}

	status := model.NoAccess(email)
	if accessType := decodeAccessType(raw); accessType != "" {
		status.AccessType = accessType
	}
	status.HasActiveSubscription = status.AccessType != model.AccessNone
	status.HasFullAccess = status.AccessType == model.AccessFull

	var rows []model.Subscription
	if err := s.store.Query(ctx, database.TableSubscriptions, &supabase.Query{
		Select: "end_date,detail",
		Filter: supabase.Match(supabase.Eq("user_email", email)),
		Order:  supabase.Desc("end_date"),
		Limit:  1,
	}, &rows); err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions: %w", err)
	}
	if sub := first(rows); sub != nil && !sub.Expired(s.now()) {
		end := sub.EndDate
		status.ExpirationDate = &end
		if sub.Detail != "" {
			detail := sub.Detail
			status.SubscriptionDetail = &detail
		}
	}
	return &status, nil
}

// decodeAccessType accepts "COMPLETO", ["COMPLETO"] and
// [{"user_tipo_acesso": "COMPLETO"}] as well as the bare object.
func decodeAccessType(raw json.RawMessage) string {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return ""
		}
		return decodeAccessType(list[0])
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err == nil {
		v, _ := obj[AccessTypeFunction].(string)
		return v
	}
	return ""
}
