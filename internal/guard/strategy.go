package guard

// Strategy names one way of proving identity. Each route is bound to
// exactly one strategy at registration time; routes without an explicit
// binding use StrategyAccessToken.
type Strategy string

const (
	StrategyNone               Strategy = "none"
	StrategyPassword           Strategy = "password"
	StrategyVerificationCode   Strategy = "verification-code"
	StrategyProfile            Strategy = "profile"
	StrategyUUID               Strategy = "uuid"
	StrategyAPIKey             Strategy = "api-key"
	StrategyRefreshToken       Strategy = "refresh-token"
	StrategyGoogle             Strategy = "google"
	StrategyWechat             Strategy = "wechat"
	StrategyWechatRefreshToken Strategy = "wechat-refresh-token"
	StrategyAccessToken        Strategy = "access-token"
)
