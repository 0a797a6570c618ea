package api

import "github.com/joltcab/console/internal/logger"

// API bundles the request executor with every facade built on it.
type API struct {
	client *Client

	Auth          *AuthService
	Trips         *TripService
	Payments      *PaymentService
	Wallet        *WalletService
	Settings      *SettingsService
	Setup         *SetupService
	Test          *TestService
	Blog          *BlogService
	Stats         *StatsService
	Users         *UserService
	Documents     *DocumentService
	Onboarding    *OnboardingService
	Notifications *NotificationService
	Assistant     *AssistantService
}

// New wires the facades around one executor. The executor reads its
// bearer token from session, and the auth facade commits tokens to it.
func New(
	opts Options,
	session TokenStore,
	oauth OAuthOptions,
	navigator Navigator,
) *API {
	c := NewClient(opts, session)

	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	return &API{
		client:        c,
		Auth:          NewAuthService(c, session, oauth, navigator, log),
		Trips:         NewTripService(c),
		Payments:      NewPaymentService(c),
		Wallet:        NewWalletService(c),
		Settings:      NewSettingsService(c),
		Setup:         NewSetupService(c),
		Test:          NewTestService(c),
		Blog:          NewBlogService(c),
		Stats:         NewStatsService(c),
		Users:         NewUserService(c),
		Documents:     NewDocumentService(c),
		Onboarding:    NewOnboardingService(c),
		Notifications: NewNotificationService(c),
		Assistant:     NewAssistantService(c),
	}
}

// Client returns the shared request executor.
func (a *API) Client() *Client {
	return a.client
}
