package model

// Principal はリクエストを行う主体。
// IDが空なら匿名（未ログイン）。
type Principal struct {
	ID      string
	IsAdmin bool
}

func Anonymous() Principal {
	return Principal{}
}

func (p Principal) IsAuthenticated() bool {
	return p.ID != ""
}
