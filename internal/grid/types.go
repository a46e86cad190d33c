package grid

// allSeriesData is the "data" object of a discovery query.
type allSeriesData struct {
	AllSeries seriesConnection `json:"allSeries"`
}

type seriesConnection struct {
	PageInfo pageInfo     `json:"pageInfo"`
	Edges    []seriesEdge `json:"edges"`
}

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type seriesEdge struct {
	Node seriesNode `json:"node"`
}

// seriesNode is a series as returned by either query. Optional objects are
// pointers because the minimal query omits them and the rich one may null them.
type seriesNode struct {
	ID                 string       `json:"id"`
	StartTimeScheduled string       `json:"startTimeScheduled"`
	Title              *namedRef    `json:"title"`
	Tournament         *namedRef    `json:"tournament"`
	Format             *namedRef    `json:"format"`
	Teams              []seriesTeam `json:"teams"`
}

type namedRef struct {
	NameShortened string `json:"nameShortened"`
}

type seriesTeam struct {
	BaseInfo *struct {
		Name string `json:"name"`
	} `json:"baseInfo"`
}

// seriesStateData is the "data" object of a series state query.
type seriesStateData struct {
	Series *struct {
		Games []seriesGame `json:"games"`
	} `json:"series"`
}

type seriesGame struct {
	Segments []gameSegment `json:"segments"`
}

// gameSegment is one round of a map.
type gameSegment struct {
	Number        int  `json:"number"`
	Team1Score    int  `json:"team1Score"`
	Team2Score    int  `json:"team2Score"`
	IsMapFinished bool `json:"isMapFinished"`
}
