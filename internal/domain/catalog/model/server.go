package model

// ServerRequirement 游戏对服务器字段的要求，只有下面三种取值
type ServerRequirement interface {
	serverRequirement()
}

// NoServer 无需服务器
type NoServer struct{}

// ServerIDField 玩家手填服务器/区 ID
type ServerIDField struct{}

// RegionChoice 从列表中选择服务器；Namespace 非空时列表需从接口动态拉取
type RegionChoice struct {
	Namespace string
}

func (NoServer) serverRequirement()      {}
func (ServerIDField) serverRequirement() {}
func (RegionChoice) serverRequirement()  {}

// Server 服务器选项
type Server struct {
	Value string `json:"value"`
	Name  string `json:"name"`
}

var (
	// staticServers 固定服务器列表
	staticServers = map[string][]string{
		"identity-v":                 {"Asia", "NA-EU"},
		"love-and-deepspace":         {"Asia", "America", "Europe"},
		"zenless-zone-zero":          {"America", "Asia", "Europe", "TW/HK/MO"},
		"snowbreak-containment-zone": {"Asia", "SEA", "Americas", "Europe"},
	}
	defaultServers = []string{"America", "Asia", "Europe", "TW,HK,MO"}

	// dynamicServerNamespaces 服务器列表由接口提供的游戏
	dynamicServerNamespaces = map[string]string{
		"ragnarok-origin": "ro-origin",
	}

	// apiGameKeys 目录 key 与校验接口 key 不一致的游戏
	apiGameKeys = map[string]string{
		"zenless-zero": "zenless-zone-zero",
	}
)

// CanonicalKey 校验接口使用的游戏 key
func CanonicalKey(gameKey string) string {
	if k, ok := apiGameKeys[gameKey]; ok {
		return k
	}
	return gameKey
}

// ServerRequirement has_server_id 优先于 has_region_selection
func (g *Game) ServerRequirement() ServerRequirement {
	switch {
	case g.HasServerID:
		return ServerIDField{}
	case g.HasRegionSelection:
		return RegionChoice{Namespace: dynamicServerNamespaces[CanonicalKey(g.GameKey)]}
	default:
		return NoServer{}
	}
}

// RequiresServer 该游戏下单是否必须带服务器
func RequiresServer(req ServerRequirement) bool {
	switch req.(type) {
	case ServerIDField, RegionChoice:
		return true
	default:
		return false
	}
}

// ServerKind 对外暴露的服务器要求类型
func ServerKind(req ServerRequirement) string {
	switch r := req.(type) {
	case ServerIDField:
		return "server_id"
	case RegionChoice:
		if r.Namespace != "" {
			return "region_dynamic"
		}
		return "region"
	default:
		return "none"
	}
}

// StaticServers 非动态游戏的服务器列表
func StaticServers(gameKey string) []Server {
	names, ok := staticServers[CanonicalKey(gameKey)]
	if !ok {
		names = defaultServers
	}
	out := make([]Server, len(names))
	for i, n := range names {
		out[i] = Server{Value: n, Name: n}
	}
	return out
}
