// Package config defines configuration structures for the batchproxy CLI.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (BATCHPROXY_ prefix)
//   - YAML configuration file
//
// # File Format
//
//	user_agent: "Mozilla/5.0 ..."
//	health_check_on_add: true
//	precache_size: false
//	probe:
//	  url: https://google.com/
//	  method: GET
//	assignment: shared        # or least-loaded
//	chunk_size: 64KiB
//	bucket: file:///srv/downloads   # optional, paths become object keys
//	progress: true
//	progress_interval: 1s
//	proxies:
//	  - address: http://10.8.8.1:3128
//	    username: proxyuser
//	    password: secret
//	downloads:
//	  - url: https://example.com/a.bin
//	    path: a.bin
package config
