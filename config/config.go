package config

import "time"

type Config struct {
	Web     Web
	DB      DB
	Cors    Cors
	Auth    Auth
	Oauth   Oauth
	Redis   Redis
	Payment Payment
	Events  Events
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type DB struct {
	User         string `conf:"default:postgres"`
	Password     string `conf:"default:postgres,mask"`
	Host         string `conf:"default:localhost:5432"`
	Name         string `conf:"default:coursemarket"`
	MaxIdleConns int    `conf:"default:3"`
	MaxOpenConns int    `conf:"default:2"`
	DisableTLS   bool   `conf:"default:true"`
	Migrate      bool   `conf:"default:true"`
}

type Cors struct {
	Origin string
}

type Auth struct {
	SessionLifetime time.Duration `conf:"default:24h"`
	LoginBurst      int           `conf:"default:5"`
	LoginInterval   time.Duration `conf:"default:2s"`
}

type Oauth struct {
	DiscoveryTimeout time.Duration `conf:"default:10s"`
	LoginRedirectURL string        `conf:"default:http://localhost:5173/"`
	Google           OauthProvider
}

type OauthProvider struct {
	Client      string
	Secret      string `conf:"mask"`
	URL         string `conf:"default:https://accounts.google.com"`
	RedirectURL string `conf:"default:http://localhost:8000/auth/oauth-callback/google"`
}

// Redis is optional; an empty Address disables the read cache.
type Redis struct {
	Address  string
	Password string        `conf:"mask"`
	DB       int           `conf:"default:0"`
	TTL      time.Duration `conf:"default:5m"`
}

type Payment struct {
	ReceiverID      string        `conf:"default:payments@upi"`
	ConfirmBurst    int           `conf:"default:3"`
	ConfirmInterval time.Duration `conf:"default:10s"`
	SweepSchedule   string        `conf:"default:@every 1h"`
	OrphanAge       time.Duration `conf:"default:24h"`
}

type Events struct {
	Buffer int64 `conf:"default:64"`
}
