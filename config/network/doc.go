// Package network loads the named EVM networks the deployer can target.
//
// A built-in manifest provides the Open Campus Codex testnet ("opencampus") and a local
// development node ("localhost"). User manifests are merged over it by network name:
//
//	networks:
//	  - name: opencampus
//	    display_name: Open Campus Codex
//	    type: testnet
//	    chain_id: 656476
//	    rpcs:
//	      - rpc_name: gelato
//	        preferred_url_scheme: http
//	        http_url: https://rpc.open-campus-codex.gelato.digital
//	    block_explorer:
//	      type: blockscout
//	      url: https://opencampus-codex.blockscout.com
package network
