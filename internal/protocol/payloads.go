package protocol

// --- client -> server payloads ---

type JoinPayload struct {
	Name   string `json:"name,omitempty"`
	RoomID string `json:"roomId,omitempty"`
}

type PingPayload struct {
	ClientTimeMs int64 `json:"clientTimeMs"`
}

type SetSettingsPayload struct {
	CubeN        *int `json:"cubeN,omitempty"`
	RoundSeconds *int `json:"roundSeconds,omitempty"`
	TickRate     *int `json:"tickRate,omitempty"`
}

type ReadyPayload struct {
	Ready bool `json:"ready"`
}

type InputItem struct {
	Tick int `json:"tick"`
	Turn int `json:"turn"`
}

type InputPayload struct {
	Inputs []InputItem `json:"inputs"`
}

// --- server -> client payloads ---

type PlayerSummary struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Ready    bool   `json:"ready"`
	Color    int    `json:"color"`
}

type LobbySettings struct {
	CubeN        int `json:"cubeN"`
	RoundSeconds int `json:"roundSeconds"`
	TickRate     int `json:"tickRate"`
}

type Lobby struct {
	RoomID   string          `json:"roomId"`
	HostID   string          `json:"hostId,omitempty"`
	Players  []PlayerSummary `json:"players"`
	Settings LobbySettings   `json:"settings"`
}

type JoinedPayload struct {
	PlayerID string `json:"playerId"`
	RoomID   string `json:"roomId"`
	IsHost   bool   `json:"isHost"`
	Lobby    Lobby  `json:"lobby"`
}

type LobbyStatePayload struct {
	Lobby Lobby `json:"lobby"`
}

type StartSettings struct {
	CubeN        int `json:"cubeN"`
	RoundSeconds int `json:"roundSeconds"`
	TickRate     int `json:"tickRate"`
	FruitTarget  int `json:"fruitTarget"`
}

type StartPlayer struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Color    int    `json:"color"`
}

type StartPayload struct {
	Settings          StartSettings `json:"settings"`
	Seed              int64         `json:"seed"`
	StartTick         int           `json:"startTick"`
	StartServerTimeMs int64         `json:"startServerTimeMs"`
	Players           []StartPlayer `json:"players"`
}

type SnakeView struct {
	PlayerID    string `json:"playerId"`
	Alive       bool   `json:"alive"`
	Dir         int    `json:"dir"`
	Cells       []int  `json:"cells"`
	RespawnInMs *int64 `json:"respawnInMs,omitempty"`
}

type FruitView struct {
	ID    string `json:"id"`
	Cell  int    `json:"cell"`
	Kind  string `json:"kind"`
	Value int    `json:"value"`
}

type StatePayload struct {
	Tick          int             `json:"tick"`
	ServerTimeMs  int64           `json:"serverTimeMs"`
	TimerMsLeft   int64           `json:"timerMsLeft"`
	Snakes        []SnakeView     `json:"snakes"`
	Fruits        []FruitView     `json:"fruits"`
	Scores        map[string]int  `json:"scores"`
	InputAck      map[string]int  `json:"inputAck"`
}

type EndPayload struct {
	FinalScores map[string]int `json:"finalScores"`
}

type PongPayload struct {
	ClientTimeMs int64 `json:"clientTimeMs"`
	ServerTimeMs int64 `json:"serverTimeMs"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}
