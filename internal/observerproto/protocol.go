package observerproto

// Version is the inspection protocol version.
const Version = "0.1"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeLayer     = "LAYER"
	TypeError     = "ERROR"
)

// EncodingRLE means: base64 of (uvarint value, uvarint run) pairs covering
// width*height cells in row-major order.
const EncodingRLE = "RLE_U16_UVARINT_B64"

// Client -> Server. First message on the websocket, and can be re-sent to
// request more layers.
type SubscribeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Layers          []string `json:"layers"`
}

// HTTP response for GET /v1/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string      `json:"protocol_version"`
	WorldParams     WorldParams `json:"world_params"`
	Layers          []LayerInfo `json:"layers"`
	// BiomePalette maps category value i to biome name i.
	BiomePalette []string       `json:"biome_palette"`
	Biomes       map[string]int `json:"biomes"`
	Stages       []string       `json:"stages"`
}

type WorldParams struct {
	Seed          int64  `json:"seed"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Digest        string `json:"digest"`
	ConfigDigest  string `json:"config_digest"`
	CatalogDigest string `json:"catalog_digest"`
	BiomeTable    string `json:"biome_table"`
}

type LayerInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// Server -> Client. One full layer.
type LayerMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Name            string `json:"name"`
	Kind            string `json:"kind"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	Encoding        string `json:"encoding"`
	Data            string `json:"data"`
}

// Server -> Client. Sent for requests the server cannot satisfy; the
// connection stays open.
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}
