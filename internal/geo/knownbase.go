package geo

import "sync"

// seedAssignments maps normalized location keys to normalized country names.
// The table covers place names that LLM association has historically confused
// across countries; entries learned at runtime extend it through Add.
var seedAssignments = map[string]string{
	// Russia
	"petropavlovskkamchatsky": "russia",
	"petropavlovsk":           "russia",
	"kamchatsky":              "russia",
	"kamchatka":               "russia",
	"vladivostok":             "russia",
	"moscow":                  "russia",
	"stpetersburg":            "russia",
	"saintpetersburg":         "russia",
	"novosibirsk":             "russia",
	"yekaterinburg":           "russia",
	"nizhniynovgorod":         "russia",
	"kazan":                   "russia",
	"chelyabinsk":             "russia",
	"omsk":                    "russia",
	"samara":                  "russia",
	"rostovondon":             "russia",
	"ufa":                     "russia",
	"krasnoyarsk":             "russia",
	"perm":                    "russia",
	"voronezh":                "russia",
	"volgograd":               "russia",
	"krasnodar":               "russia",
	"saratov":                 "russia",
	"tyumen":                  "russia",
	"tolyatti":                "russia",
	"izhevsk":                 "russia",
	"khabarovsk":              "russia",
	"magadan":                 "russia",
	"yuzhnosakhalinsk":        "russia",

	// Australia
	"sydney":        "australia",
	"melbourne":     "australia",
	"brisbane":      "australia",
	"adelaide":      "australia",
	"goldcoast":     "australia",
	"newcastle":     "australia",
	"canberra":      "australia",
	"sunshinecoast": "australia",
	"wollongong":    "australia",
	"hobart":        "australia",
	"geelong":       "australia",
	"townsville":    "australia",
	"cairns":        "australia",
	"darwin":        "australia",
	"toowoomba":     "australia",
	"ballarat":      "australia",
	"bendigo":       "australia",
	"albury":        "australia",
	"launceston":    "australia",

	// Japan
	"tokyo":       "japan",
	"yokohama":    "japan",
	"osaka":       "japan",
	"nagoya":      "japan",
	"sapporo":     "japan",
	"fukuoka":     "japan",
	"kobe":        "japan",
	"kawasaki":    "japan",
	"kyoto":       "japan",
	"saitama":     "japan",
	"hiroshima":   "japan",
	"sendai":      "japan",
	"kitakyushu":  "japan",
	"chiba":       "japan",
	"sakai":       "japan",
	"niigata":     "japan",
	"hamamatsu":   "japan",
	"kumamoto":    "japan",
	"sagamihara":  "japan",
	"shizuoka":    "japan",
	"okayama":     "japan",
	"kagoshima":   "japan",
	"fukushima":   "japan",
	"kanazawa":    "japan",
	"utsunomiya":  "japan",
	"matsuyama":   "japan",
	"kurashiki":   "japan",
	"yokosuka":    "japan",
	"toyama":      "japan",
	"toyohashi":   "japan",
	"nara":        "japan",
	"gifu":        "japan",
	"fukuyama":    "japan",
	"ichikawa":    "japan",
	"iwaki":       "japan",
	"oita":        "japan",
	"naha":        "japan",
	"nagasaki":    "japan",
	"himeji":      "japan",
	"matsudo":     "japan",
	"nishinomiya": "japan",
	"kawaguchi":   "japan",

	// China
	"beijing":      "china",
	"shanghai":     "china",
	"guangzhou":    "china",
	"shenzhen":     "china",
	"tianjin":      "china",
	"wuhan":        "china",
	"dongguan":     "china",
	"chengdu":      "china",
	"nanjing":      "china",
	"chongqing":    "china",
	"xian":         "china",
	"shenyang":     "china",
	"hangzhou":     "china",
	"foshan":       "china",
	"harbin":       "china",
	"suzhou":       "china",
	"qingdao":      "china",
	"dalian":       "china",
	"zhengzhou":    "china",
	"shantou":      "china",
	"jinan":        "china",
	"changchun":    "china",
	"kunming":      "china",
	"changsha":     "china",
	"taiyuan":      "china",
	"xiamen":       "china",
	"shijiazhuang": "china",
	"hefei":        "china",
	"urumqi":       "china",
	"fuzhou":       "china",
	"wuxi":         "china",
	"zhongshan":    "china",
	"wenzhou":      "china",
	"nanning":      "china",
	"nanchang":     "china",
	"ningbo":       "china",
	"guiyang":      "china",
	"lanzhou":      "china",
	"zhuhai":       "china",
	"haikou":       "china",
	"luoyang":      "china",
	"yinchuan":     "china",
	"baoding":      "china",
	"anshan":       "china",
	"tangshan":     "china",
	"xinyang":      "china",
	"weifang":      "china",
	"zibo":         "china",

	// United Kingdom
	"london":        "united kingdom",
	"birmingham":    "united kingdom",
	"manchester":    "united kingdom",
	"glasgow":       "united kingdom",
	"liverpool":     "united kingdom",
	"leeds":         "united kingdom",
	"sheffield":     "united kingdom",
	"edinburgh":     "united kingdom",
	"bristol":       "united kingdom",
	"cardiff":       "united kingdom",
	"belfast":       "united kingdom",
	"leicester":     "united kingdom",
	"nottingham":    "united kingdom",
	"coventry":      "united kingdom",
	"hull":          "united kingdom",
	"bradford":      "united kingdom",
	"stoke":         "united kingdom",
	"wolverhampton": "united kingdom",
	"plymouth":      "united kingdom",
	"derby":         "united kingdom",
	"swansea":       "united kingdom",
	"southampton":   "united kingdom",
	"salford":       "united kingdom",
	"aberdeen":      "united kingdom",
	"westminster":   "united kingdom",
	"portsmouth":    "united kingdom",
	"york":          "united kingdom",
	"peterborough":  "united kingdom",
	"dundee":        "united kingdom",
	"lancaster":     "united kingdom",
	"oxford":        "united kingdom",
	"newport":       "united kingdom",
	"preston":       "united kingdom",
	"stalbans":      "united kingdom",
	"norwich":       "united kingdom",
	"chester":       "united kingdom",
	"cambridge":     "united kingdom",
	"salisbury":     "united kingdom",
	"exeter":        "united kingdom",
	"gloucester":    "united kingdom",
	"lisburn":       "united kingdom",
	"chichester":    "united kingdom",
	"winchester":    "united kingdom",
	"lichfield":     "united kingdom",
	"hereford":      "united kingdom",
	"perth":         "united kingdom",
	"elgin":         "united kingdom",
	"stirling":      "united kingdom",
	"newry":         "united kingdom",
	"bangor":        "united kingdom",

	// France
	"paris":           "france",
	"marseille":       "france",
	"lyon":            "france",
	"toulouse":        "france",
	"nice":            "france",
	"nantes":          "france",
	"strasbourg":      "france",
	"montpellier":     "france",
	"bordeaux":        "france",
	"lille":           "france",
	"rennes":          "france",
	"reims":           "france",
	"lemans":          "france",
	"aixenprovence":   "france",
	"clermontferrand": "france",
	"saintetienne":    "france",
	"tours":           "france",
	"limoges":         "france",
	"nancy":           "france",
	"grenoble":        "france",
	"angers":          "france",
	"dijon":           "france",
	"nimes":           "france",
	"saintdenis":      "france",
	"lehavre":         "france",
	"toulon":          "france",
	"brest":           "france",
	"amiens":          "france",
	"perpignan":       "france",
	"besancon":        "france",
	"metz":            "france",
	"orleans":         "france",
	"mulhouse":        "france",
	"rouen":           "france",
	"pau":             "france",
	"argenteuil":      "france",
	"montreuil":       "france",
	"caen":            "france",

	// Germany
	"berlin":          "germany",
	"hamburg":         "germany",
	"munich":          "germany",
	"cologne":         "germany",
	"frankfurt":       "germany",
	"stuttgart":       "germany",
	"dusseldorf":      "germany",
	"dortmund":        "germany",
	"essen":           "germany",
	"leipzig":         "germany",
	"bremen":          "germany",
	"dresden":         "germany",
	"hanover":         "germany",
	"nuremberg":       "germany",
	"duisburg":        "germany",
	"bochum":          "germany",
	"wuppertal":       "germany",
	"bielefeld":       "germany",
	"bonn":            "germany",
	"munster":         "germany",
	"karlsruhe":       "germany",
	"mannheim":        "germany",
	"augsburg":        "germany",
	"wiesbaden":       "germany",
	"gelsenkirchen":   "germany",
	"monchengladbach": "germany",
	"braunschweig":    "germany",
	"chemnitz":        "germany",
	"kiel":            "germany",
	"aachen":          "germany",
	"halle":           "germany",
	"magdeburg":       "germany",
	"freiburg":        "germany",
	"krefeld":         "germany",
	"lubeck":          "germany",
	"oberhausen":      "germany",
	"erfurt":          "germany",
	"mainz":           "germany",
	"rostock":         "germany",
	"kassel":          "germany",
	"hagen":           "germany",
	"potsdam":         "germany",
	"saarbrucken":     "germany",
	"hamm":            "germany",
	"mulheim":         "germany",
	"ludwigshafen":    "germany",
	"leverkusen":      "germany",
	"oldenburg":       "germany",
	"neuss":           "germany",
	"heidelberg":      "germany",

	// Italy
	"rome":           "italy",
	"milan":          "italy",
	"naples":         "italy",
	"turin":          "italy",
	"palermo":        "italy",
	"genoa":          "italy",
	"bologna":        "italy",
	"florence":       "italy",
	"bari":           "italy",
	"catania":        "italy",
	"venice":         "italy",
	"verona":         "italy",
	"messina":        "italy",
	"padua":          "italy",
	"trieste":        "italy",
	"taranto":        "italy",
	"brescia":        "italy",
	"prato":          "italy",
	"parma":          "italy",
	"modena":         "italy",
	"reggiocalabria": "italy",
	"reggioemilia":   "italy",
	"perugia":        "italy",
	"livorno":        "italy",
	"ravenna":        "italy",
	"cagliari":       "italy",
	"foggia":         "italy",
	"rimini":         "italy",
	"salerno":        "italy",
	"ferrara":        "italy",
	"sassari":        "italy",
	"latina":         "italy",
	"giugliano":      "italy",
	"monza":          "italy",
	"syracuse":       "italy",
	"pescara":        "italy",
	"bergamo":        "italy",
	"forli":          "italy",
	"trento":         "italy",
	"vicenza":        "italy",
	"terni":          "italy",
	"bolzano":        "italy",
	"novara":         "italy",
	"piacenza":       "italy",
	"ancona":         "italy",
	"andria":         "italy",
	"arezzo":         "italy",
	"udine":          "italy",
	"cesena":         "italy",
	"lecce":          "italy",

	// Spain
	"madrid":      "spain",
	"barcelona":   "spain",
	"valencia":    "spain",
	"seville":     "spain",
	"zaragoza":    "spain",
	"malaga":      "spain",
	"murcia":      "spain",
	"palma":       "spain",
	"laspalmas":   "spain",
	"bilbao":      "spain",
	"alicante":    "spain",
	"cordoba":     "spain",
	"valladolid":  "spain",
	"vigo":        "spain",
	"gijon":       "spain",
	"hospitalet":  "spain",
	"vitoria":     "spain",
	"lacoruna":    "spain",
	"granada":     "spain",
	"elche":       "spain",
	"oviedo":      "spain",
	"badalona":    "spain",
	"cartagena":   "spain",
	"terrassa":    "spain",
	"jerez":       "spain",
	"sabadell":    "spain",
	"pamplona":    "spain",
	"almeria":     "spain",
	"mostoles":    "spain",
	"fuenlabrada": "spain",
	"leganes":     "spain",
	"donostia":    "spain",
	"burgos":      "spain",
	"albacete":    "spain",
	"santander":   "spain",
	"getafe":      "spain",
	"castellon":   "spain",
	"logrono":     "spain",
	"badajoz":     "spain",
	"huelva":      "spain",
	"leon":        "spain",
	"salamanca":   "spain",
	"tarragona":   "spain",
	"cadiz":       "spain",
	"lleida":      "spain",
	"jaen":        "spain",
	"ourense":     "spain",
	"reus":        "spain",
	"torrejon":    "spain",

	// Chile, mostly coastal settlements from tsunami advisories
	"aisen":            "chile",
	"aysen":            "chile",
	"ancud":            "chile",
	"bahiagregorio":    "chile",
	"bahiamansa":       "chile",
	"boyeruca":         "chile",
	"caletameteoro":    "chile",
	"caletapaposo":     "chile",
	"coliumo":          "chile",
	"easterisland":     "chile",
	"juanfernandez":    "chile",
	"nehuentue":        "chile",
	"portmelinka":      "chile",
	"puertoaguirre":    "chile",
	"puertoaldea":      "chile",
	"puertochacabuco":  "chile",
	"puertoeden":       "chile",
	"puertonatales":    "chile",
	"puertowilliams":   "chile",
	"puertomontt":      "chile",
	"queule":           "chile",
	"quiriquinaisland": "chile",
	"sanfelix":         "chile",
	"coronel":          "chile",
	"corralchile":      "chile",

	// Costa Rica
	"carrillo":      "costa rica",
	"cocosisland":   "costa rica",
	"esparza":       "costa rica",
	"garabito":      "costa rica",
	"golfito":       "costa rica",
	"hojancha":      "costa rica",
	"lacruz":        "costa rica",
	"nandayure":     "costa rica",
	"osa":           "costa rica",
	"parrita":       "costa rica",
	"santacruz":     "costa rica",
	"puertojimenez": "costa rica",
}

// KnowledgeBase holds known location-country assignments: a seeded table plus
// entries learned from promoted suggestions. Lookups are concurrent-safe;
// writes go through Add or Merge.
type KnowledgeBase struct {
	mu          sync.RWMutex
	assignments map[string]string
	learned     map[string]string
}

// NewKnowledgeBase returns a knowledge base seeded with the built-in table.
func NewKnowledgeBase() *KnowledgeBase {
	assignments := make(map[string]string, len(seedAssignments))
	for k, v := range seedAssignments {
		assignments[k] = v
	}
	return &KnowledgeBase{
		assignments: assignments,
		learned:     make(map[string]string),
	}
}

// Lookup returns the normalized country a location is known to belong to.
func (kb *KnowledgeBase) Lookup(location string) (string, bool) {
	key := NormalizeLocation(location)
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	country, ok := kb.assignments[key]
	return country, ok
}

// Add records a location-country assignment. It returns true when the entry
// was new or changed; learned entries are tracked separately so they can be
// persisted.
func (kb *KnowledgeBase) Add(location, country string) bool {
	key := NormalizeLocation(location)
	value := NormalizeCountry(country)
	if key == "" || value == "" {
		return false
	}
	kb.mu.Lock()
	defer kb.mu.Unlock()
	if kb.assignments[key] == value {
		return false
	}
	kb.assignments[key] = value
	kb.learned[key] = value
	return true
}

// Merge loads previously persisted learned assignments, normalizing keys and
// values. Returns the number of entries applied.
func (kb *KnowledgeBase) Merge(entries map[string]string) int {
	applied := 0
	for location, country := range entries {
		if kb.Add(location, country) {
			applied++
		}
	}
	return applied
}

// Learned returns a copy of the entries added since construction, for
// persistence.
func (kb *KnowledgeBase) Learned() map[string]string {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	out := make(map[string]string, len(kb.learned))
	for k, v := range kb.learned {
		out[k] = v
	}
	return out
}

// Snapshot returns a copy of all current assignments.
func (kb *KnowledgeBase) Snapshot() map[string]string {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	out := make(map[string]string, len(kb.assignments))
	for k, v := range kb.assignments {
		out[k] = v
	}
	return out
}

// Len reports the number of known assignments.
func (kb *KnowledgeBase) Len() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return len(kb.assignments)
}
