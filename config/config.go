package config

import (
	"fmt"

	"gousdcbridge/types"
)

type Configuration struct {
	// Server config
	Server struct {
		Port      int    `yaml:"port" envconfig:"SERVER_PORT"`
		RedisHost string `yaml:"redis_host" envconfig:"REDIS_HOST"`
		RedisPort int    `yaml:"redis_port" envconfig:"REDIS_PORT"`
	} `yaml:"server"`
	// Circle custody API config
	Circle struct {
		APIBase string `yaml:"api_base" envconfig:"CIRCLE_API_BASE"`
		// important private stuff
		APIKey string `yaml:"api_key" envconfig:"CIRCLE_API_KEY"`
		// opaque credential forwarded to Circle with every developer
		// transaction, custody never happens on our side
		EntitySecret string `yaml:"entity_secret" envconfig:"CIRCLE_ENTITY_SECRET"`
		IrisBase     string `yaml:"iris_base" envconfig:"CIRCLE_IRIS_BASE"`
	} `yaml:"circle"`
	Bridge struct {
		// confirmation and attestation poll cadence
		PollIntervalSec int `yaml:"poll_interval_sec" envconfig:"BRIDGE_POLL_INTERVAL_SEC"`
		// how many runs the worker pool advances concurrently
		MaxConcurrentRuns int `yaml:"max_concurrent_runs" envconfig:"BRIDGE_MAX_CONCURRENT_RUNS"`
		// 0 means wait for attestation indefinitely; deployment policy
		AttestationTimeoutMin int `yaml:"attestation_timeout_min" envconfig:"BRIDGE_ATTESTATION_TIMEOUT_MIN"`
	} `yaml:"bridge"`
}

var Config Configuration

// ChainConfig is one row of the chain registry: everything a transfer
// needs to know about a chain's CCTP deployment.
type ChainConfig struct {
	Name    string
	ChainID types.ChainID
	RPCList []string
	// CCTP domain id, distinct from the chain's native chain id
	DomainID                   uint32
	USDCContract               string
	TokenMessengerContract     string
	MessageTransmitterContract string
	// Circle's token id for the USDC asset on this chain
	USDCTokenID string
}

// Chains is the registry for the closed set of supported chains.
// Addresses and domain ids are Circle's published CCTP testnet values.
var Chains = map[types.ChainID]ChainConfig{
	types.CHAIN_ETH_SEPOLIA: {
		Name:                       "Ethereum Sepolia",
		ChainID:                    types.CHAIN_ETH_SEPOLIA,
		RPCList:                    []string{"https://ethereum-sepolia-rpc.publicnode.com", "https://sepolia.drpc.org"},
		DomainID:                   0,
		USDCContract:               "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238",
		TokenMessengerContract:     "0x9f3B8679c73C2Fef8b59B4f3444d4e156fb70AA5",
		MessageTransmitterContract: "0x7865fAfC2db2093669d92c0F33AeEF291086BEFD",
		USDCTokenID:                "63086b75-1a89-52c9-9f7f-3229c6b4419b",
	},
	types.CHAIN_AVAX_FUJI: {
		Name:                       "Avalanche Fuji",
		ChainID:                    types.CHAIN_AVAX_FUJI,
		RPCList:                    []string{"https://avalanche-fuji-c-chain-rpc.publicnode.com", "https://avalanche-fuji.drpc.org"},
		DomainID:                   1,
		USDCContract:               "0x5425890298aed601595a70ab815c96711a31bc65",
		TokenMessengerContract:     "0xeb08f243e5d3fcff26a9e38ae5520a669f4019d0",
		MessageTransmitterContract: "0x7865fAfC2db2093669d92c0F33AeEF291086BEFD",
		USDCTokenID:                "bf5df03b-356f-5bd9-81fd-30d0329f7d8f",
	},
	types.CHAIN_MATIC_AMOY: {
		Name:                       "Polygon Amoy",
		ChainID:                    types.CHAIN_MATIC_AMOY,
		RPCList:                    []string{"https://polygon-amoy-bor-rpc.publicnode.com", "https://polygon-amoy.drpc.org"},
		DomainID:                   7,
		USDCContract:               "0x9999f7Fea5938fD3b1E26A12c3f2fb024e194f97",
		TokenMessengerContract:     "0x9f3B8679c73C2Fef8b59B4f3444d4e156fb70AA5",
		MessageTransmitterContract: "0x7865fAfC2db2093669d92c0F33AeEF291086BEFD",
		USDCTokenID:                "922d8563-debf-5c11-af75-85ea9ce68d64",
	},
	types.CHAIN_ARB_SEPOLIA: {
		Name:                       "Arbitrum Sepolia",
		ChainID:                    types.CHAIN_ARB_SEPOLIA,
		RPCList:                    []string{"https://arbitrum-sepolia-rpc.publicnode.com", "https://arbitrum-sepolia.drpc.org"},
		DomainID:                   3,
		USDCContract:               "0x75faf114eafb1BDbe2F0316DF893fd58CE46AA4d",
		TokenMessengerContract:     "0x9f3B8679c73C2Fef8b59B4f3444d4e156fb70AA5",
		MessageTransmitterContract: "0x7865fAfC2db2093669d92c0F33AeEF291086BEFD",
		USDCTokenID:                "09d9e0b9-e9a1-5b3c-9c7f-d7bde746e7e2",
	},
	types.CHAIN_UNI_SEPOLIA: {
		Name:                       "Unichain Sepolia",
		ChainID:                    types.CHAIN_UNI_SEPOLIA,
		RPCList:                    []string{"https://unichain-sepolia-rpc.publicnode.com"},
		DomainID:                   10,
		USDCContract:               "0x31d0220469e10c4E71834a79b1f276d740d3768F",
		TokenMessengerContract:     "0x8ed94B8dAd2Dc5453862ea5e316A8e71AAed9782",
		MessageTransmitterContract: "0x7865fAfC2db2093669d92c0F33AeEF291086BEFD",
		USDCTokenID:                "13ef30cd-309b-5c41-98cc-0fd68c4c8c44",
	},
}

// ChainByID looks up a chain's registry entry. ChainID is a closed set,
// so a miss is a programming-error-class failure: callers abort, they do
// not retry.
func ChainByID(id types.ChainID) (ChainConfig, error) {
	c, ok := Chains[id]
	if !ok {
		return ChainConfig{}, fmt.Errorf("%w: %s", types.ErrUnsupportedChain, id)
	}
	return c, nil
}

// RedisPhaseSets maps each run phase to the Redis set holding the ids of
// runs currently in that phase.
var RedisPhaseSets = map[types.Phase]string{
	types.PhaseCreated:             "transferruns:created",
	types.PhaseApprovalSubmitted:   "transferruns:approval_submitted",
	types.PhaseApprovalConfirmed:   "transferruns:approval_confirmed",
	types.PhaseBurnSubmitted:       "transferruns:burn_submitted",
	types.PhaseBurnConfirmed:       "transferruns:burn_confirmed",
	types.PhaseMessageExtracted:    "transferruns:message_extracted",
	types.PhaseAwaitingAttestation: "transferruns:awaiting_attestation",
	types.PhaseAttestationReceived: "transferruns:attestation_received",
	types.PhaseMintSubmitted:       "transferruns:mint_submitted",
	types.PhaseMintConfirmed:       "transferruns:mint_confirmed",
	types.PhaseFailed:              "transferruns:failed",
}
