package servi

const (
	Env_ApiPort        = "SERVI_API_PORT"
	Env_BackendTimeout = "SERVI_BACKEND_TIMEOUT"
	Env_BackendUrl     = "SERVI_BACKEND_URL"
	Env_Branch         = "BRANCH"
	Env_Env            = "ENV"
	Env_EnvTag         = "ENV_TAG"
	Env_LogLevel       = "LOG_LEVEL"
	Env_OwnerScopes    = "SERVI_OWNER_SCOPES"
	Env_PollTick       = "SERVI_POLL_TICK"
	Env_Sha            = "SHA"
	Env_ShaTag         = "SHA_TAG"
)

const (
	EnvTag_Dev  = "dev"
	EnvTag_Qa   = "qa"
	EnvTag_Prod = "prod"
)
