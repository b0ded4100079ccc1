package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Build results reported by IncSpecBuild.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultNoMem   = "nomem"
	ResultInert   = "inert"
)

type Snapshot struct {
	SpecBuildsOK        int64            `json:"spec_builds_ok"`
	SpecBuildsInvalid   int64            `json:"spec_builds_invalid"`
	SpecBuildsNoMem     int64            `json:"spec_builds_nomem"`
	SpecBuildsInert     int64            `json:"spec_builds_inert"`
	SpecApplies         int64            `json:"spec_applies"`
	HeaderAccepted      int64            `json:"header_accepted"`
	HeaderRejected      int64            `json:"header_rejected"`
	HeadersGenerated    int64            `json:"headers_generated"`
	JunkPacketsSent     int64            `json:"junk_packets_sent"`
	JunkBytesSent       int64            `json:"junk_bytes_sent"`
	SendErrors          int64            `json:"send_errors"`
	ConfigReloads       int64            `json:"config_reloads"`
	EntropyReseedsTotal int64            `json:"entropy_reseeds_total"`
	EntropyBytes        map[string]int64 `json:"entropy_bytes,omitempty"`
	EntropyMethods      map[string]bool  `json:"entropy_methods,omitempty"`
	UpdatedUnix         int64            `json:"updated_unix"`
}

var (
	specBuildsOK      atomic.Int64
	specBuildsInvalid atomic.Int64
	specBuildsNoMem   atomic.Int64
	specBuildsInert   atomic.Int64
	specApplies       atomic.Int64
	headerAccepted    atomic.Int64
	headerRejected    atomic.Int64
	headersGenerated  atomic.Int64
	junkPackets       atomic.Int64
	junkBytes         atomic.Int64
	sendErrors        atomic.Int64
	configReloads     atomic.Int64
	entropyReseeds    atomic.Int64
	entropyBytes      sync.Map // class -> *atomic.Int64
	entropyMethods    sync.Map // method -> bool
)

func IncSpecBuild(result string) {
	switch result {
	case ResultOK:
		specBuildsOK.Add(1)
	case ResultInvalid:
		specBuildsInvalid.Add(1)
	case ResultNoMem:
		specBuildsNoMem.Add(1)
	case ResultInert:
		specBuildsInert.Add(1)
	}
}

func IncSpecApply() { specApplies.Add(1) }

func IncHeaderCheck(ok bool) {
	if ok {
		headerAccepted.Add(1)
		return
	}
	headerRejected.Add(1)
}

func IncHeaderGenerated() { headersGenerated.Add(1) }

func AddJunkSent(packets, bytes int64) {
	if packets > 0 {
		junkPackets.Add(packets)
	}
	if bytes > 0 {
		junkBytes.Add(bytes)
	}
}

func IncSendErrors()    { sendErrors.Add(1) }
func IncConfigReloads() { configReloads.Add(1) }
func IncEntropyReseeds() { entropyReseeds.Add(1) }

func AddEntropyBytes(n int64, class string) {
	if n <= 0 || class == "" {
		return
	}
	v, _ := entropyBytes.LoadOrStore(class, &atomic.Int64{})
	v.(*atomic.Int64).Add(n)
}

func SetEntropyMethod(method string, active bool) {
	if method == "" {
		return
	}
	entropyMethods.Store(method, active)
}

func SnapshotData() Snapshot {
	bytesByClass := make(map[string]int64)
	entropyBytes.Range(func(k, v any) bool {
		bytesByClass[k.(string)] = v.(*atomic.Int64).Load()
		return true
	})
	methods := make(map[string]bool)
	entropyMethods.Range(func(k, v any) bool {
		methods[k.(string)] = v.(bool)
		return true
	})
	return Snapshot{
		SpecBuildsOK:        specBuildsOK.Load(),
		SpecBuildsInvalid:   specBuildsInvalid.Load(),
		SpecBuildsNoMem:     specBuildsNoMem.Load(),
		SpecBuildsInert:     specBuildsInert.Load(),
		SpecApplies:         specApplies.Load(),
		HeaderAccepted:      headerAccepted.Load(),
		HeaderRejected:      headerRejected.Load(),
		HeadersGenerated:    headersGenerated.Load(),
		JunkPacketsSent:     junkPackets.Load(),
		JunkBytesSent:       junkBytes.Load(),
		SendErrors:          sendErrors.Load(),
		ConfigReloads:       configReloads.Load(),
		EntropyReseedsTotal: entropyReseeds.Load(),
		EntropyBytes:        bytesByClass,
		EntropyMethods:      methods,
		UpdatedUnix:         time.Now().Unix(),
	}
}
