package buywatch

// ConfigPathEnv defines the environment variable pointing at the JSON config file.
const ConfigPathEnv = "BUYWATCH_CONFIG"
