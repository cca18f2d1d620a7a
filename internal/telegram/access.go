package telegram

import "statguard/internal/config"

// AccessList decides which chats the bot answers. Blocked chats always lose;
// a non-empty allow list admits only its members.
type AccessList struct {
	allowed map[int64]struct{}
	blocked map[int64]struct{}
}

func NewAccessList(cfg config.TelegramConfig) *AccessList {
	return &AccessList{
		allowed: buildChatSet(cfg.AllowedChats),
		blocked: buildChatSet(cfg.BlockedChats),
	}
}

func buildChatSet(ids []int64) map[int64]struct{} {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		set[id] = struct{}{}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

func (a *AccessList) Allows(chatID int64) bool {
	if a == nil {
		return true
	}
	if _, ok := a.blocked[chatID]; ok {
		return false
	}
	if a.allowed == nil {
		return true
	}
	_, ok := a.allowed[chatID]
	return ok
}
