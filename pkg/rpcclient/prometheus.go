package rpcclient

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics used in monitoring service.
var (
	rpcCalls = []string{
		"getassetdata",
		"getbestblockhash",
		"getblock",
		"getblockchaininfo",
		"getblockcount",
		"getblockhash",
		"getmempoolinfo",
		"getnetworkinfo",
		"getrawmempool",
		"getrawtransaction",
		"listassets",
		"sendrawtransaction",
		"uptime",
		"validateaddress",
	}

	rpcCounter = map[string]prometheus.Counter{}
)

func incCounter(name string) {
	ctr, ok := rpcCounter[name]
	if ok {
		ctr.Inc()
	}
}

func init() {
	for i := range rpcCalls {
		ctr := prometheus.NewCounter(
			prometheus.CounterOpts{
				Help:      fmt.Sprintf("Number of calls to %s rpc endpoint", rpcCalls[i]),
				Name:      fmt.Sprintf("%s_called", rpcCalls[i]),
				Namespace: "evrgo",
			},
		)
		prometheus.MustRegister(ctr)
		rpcCounter[rpcCalls[i]] = ctr
	}
}
