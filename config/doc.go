// Package config loads client settings from the environment and an optional .env file.
//
// Keys are grouped in sections and read from SECTION_KEY variables:
//   - transport: community_url, web_api_url, user_agent, timeout_seconds, max_redirects, retry_max, insecure_skip_verify
//   - inventory: app_id, context_id, language, page_size, cache_ttl_seconds
//   - log: level, format
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client, err := steam.NewClient(cfg, logger)
package config
