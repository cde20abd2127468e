package service

import (
	"github.com/tanaka-0224/Iverse2/internal/domain"
	"github.com/tanaka-0224/Iverse2/internal/dto"
)

// Screens the client can render
const (
	ScreenRecommendations = "recommendations"
	ScreenBoard           = "board"
	ScreenCreatePost      = "createpost"
	ScreenChat            = "chat"
	ScreenAccount         = "account"
)

var screenByTag = map[string]string{
	"recommendations": ScreenRecommendations,
	"post":            ScreenBoard,
	"board":           ScreenBoard,
	"createpost":      ScreenCreatePost,
	"chat":            ScreenChat,
	"account":         ScreenAccount,
}

var activeTabByScreen = map[string]string{
	ScreenRecommendations: "recommendations",
	ScreenBoard:           "post",
	ScreenCreatePost:      "post",
	ScreenChat:            "chat",
	ScreenAccount:         "account",
}

var bottomTabs = []dto.Tab{
	{Key: "recommendations", Label: "おすすめ"},
	{Key: "post", Label: "募集"},
	{Key: "chat", Label: "トーク"},
	{Key: "account", Label: "アカウント"},
}

// NavigationService maps view tags to screens
type NavigationService interface {
	// Resolve returns the screen for tag; unknown tags land on recommendations
	Resolve(tag string) string
	View(identity domain.Identity, tag string) *dto.ViewResponse
}

type navigationServiceImpl struct{}

// NewNavigationService creates a new instance of NavigationService
func NewNavigationService() NavigationService {
	return &navigationServiceImpl{}
}

func (s *navigationServiceImpl) Resolve(tag string) string {
	if screen, ok := screenByTag[tag]; ok {
		return screen
	}
	return ScreenRecommendations
}

func (s *navigationServiceImpl) View(identity domain.Identity, tag string) *dto.ViewResponse {
	screen := s.Resolve(tag)
	tabs := make([]dto.Tab, len(bottomTabs))
	copy(tabs, bottomTabs)

	return &dto.ViewResponse{
		Screen:         screen,
		ActiveTab:      activeTabByScreen[screen],
		Tabs:           tabs,
		ShowDemoBanner: identity.IsDemo() && (identity.Name == "" || identity.Name == demoUserName),
	}
}
