package service

import (
	"harborbook/internal/config"

	"github.com/rs/zerolog"
)

// UserService answers role questions about Telegram users. Managers and the
// blacklist come from config; marketplace roles live in the session store.
type UserService struct {
	logger       *zerolog.Logger
	managersMap  map[int64]bool
	blacklistMap map[int64]bool
}

func NewUserService(cfg *config.Config, logger *zerolog.Logger) *UserService {
	managersMap := make(map[int64]bool)
	for _, id := range cfg.Managers {
		managersMap[id] = true
	}

	blacklistMap := make(map[int64]bool)
	for _, id := range cfg.Blacklist {
		blacklistMap[id] = true
	}

	return &UserService{
		logger:       logger,
		managersMap:  managersMap,
		blacklistMap: blacklistMap,
	}
}

func (s *UserService) IsManager(userID int64) bool {
	return s.managersMap[userID]
}

func (s *UserService) IsBlacklisted(userID int64) bool {
	return s.blacklistMap[userID]
}
