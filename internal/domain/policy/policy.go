// Package policy は「誰が」「どの操作を」できるかだけを決める。
package policy

import "sweetshop/internal/domain/model"

type Operation string

const (
	OpList          Operation = "list"
	OpRead          Operation = "read"
	OpSearch        Operation = "search"
	OpCreate        Operation = "create"
	OpUpdate        Operation = "update"
	OpPartialUpdate Operation = "partial_update"
	OpDelete        Operation = "delete"
	OpPurchase      Operation = "purchase"
	OpRestock       Operation = "restock"
)

type Decision int

const (
	Allow Decision = iota
	// 未ログイン（401）
	DenyUnauthenticated
	// ログイン済みだが権限なし（403）
	DenyForbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyUnauthenticated:
		return "unauthenticated"
	case DenyForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

type requirement int

const (
	authenticated requirement = iota
	adminOnly
)

// 購入だけはログインユーザー全員に開放する
var matrix = map[Operation]requirement{
	OpList:          authenticated,
	OpRead:          authenticated,
	OpSearch:        authenticated,
	OpPurchase:      authenticated,
	OpCreate:        adminOnly,
	OpUpdate:        adminOnly,
	OpPartialUpdate: adminOnly,
	OpDelete:        adminOnly,
	OpRestock:       adminOnly,
}

// Decide は副作用なしで可否を返す。
// 表にない操作はログイン済みでも拒否する。
func Decide(op Operation, p model.Principal) Decision {
	if !p.IsAuthenticated() {
		return DenyUnauthenticated
	}

	req, ok := matrix[op]
	if !ok {
		return DenyForbidden
	}
	if req == adminOnly && !p.IsAdmin {
		return DenyForbidden
	}
	return Allow
}
