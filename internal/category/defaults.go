package category

// Fallback is returned when no rule matches a description.
const Fallback = "OTHER"

// DefaultKeywords is the built-in keyword-to-category table. Keywords are
// matched as case-insensitive substrings of the transaction description.
// Per-category lists are ordered; earlier categories win ties within the
// default priority band.
var DefaultKeywords = map[string][]string{
	"GROCERIES": {
		"WOOLWORTHS", "COLES", "ALDI", "IGA ", "HARRIS FARM", "FOODWORKS",
	},
	"DINING": {
		"RESTAURANT", "CAFE", "MCDONALD", "KFC", "DOMINO", "GUZMAN",
		"UBER EATS", "UBER *EATS", "MENULOG", "DELIVEROO", "SUSHI", "THAI",
		"BAKERY", "ESPRESSO",
	},
	"TRANSPORT": {
		"UBER *TRIP", "UBER TRIP", "TRANSPORTFORNSW", "OPAL", "TRANSLINK",
		"MYKI", "DIDI", "TAXI", "13CABS", "PARKING", "TOLL", "LINKT",
	},
	"FUEL": {
		"CALTEX", "AMPOL", "SHELL", "BP ", "7-ELEVEN", "UNITED PETROLEUM",
	},
	"UTILITIES": {
		"ORIGIN ENERGY", "AGL", "ENERGYAUSTRALIA", "TELSTRA", "OPTUS",
		"VODAFONE", "AUSSIE BROADBAND", "SYDNEY WATER",
	},
	"ENTERTAINMENT": {
		"NETFLIX", "SPOTIFY", "DISNEY PLUS", "STAN.COM.AU", "BINGE",
		"CINEMA", "HOYTS", "EVENT CINEMAS", "STEAM", "PLAYSTATION", "TICKETEK",
	},
	"SHOPPING": {
		"AMAZON", "EBAY", "KMART", "TARGET", "BIG W", "BUNNINGS",
		"JB HI-FI", "OFFICEWORKS", "MYER", "DAVID JONES", "THE ICONIC",
	},
	"HEALTH": {
		"CHEMIST", "PHARMACY", "PRICELINE", "MEDICAL", "DENTAL",
		"PHYSIO", "OPTOMETR", "HOSPITAL",
	},
	"TRAVEL": {
		"QANTAS", "VIRGIN AUST", "JETSTAR", "REX AIRLINES", "AIRBNB",
		"BOOKING.COM", "HOTEL", "EXPEDIA",
	},
	"INSURANCE": {
		"NRMA", "AAMI", "ALLIANZ", "BUDGET DIRECT", "MEDIBANK", "BUPA",
		"HCF", "NIB ",
	},
	"FEES": {
		"ANNUAL FEE", "LATE FEE", "INTEREST CHARGE", "CARD FEE",
		"FOREIGN TRANSACTION FEE", "OVERLIMIT",
	},
}

// defaultCategoryOrder fixes the iteration order of DefaultKeywords so
// rule assembly is deterministic (map iteration order is not).
var defaultCategoryOrder = []string{
	"GROCERIES", "DINING", "TRANSPORT", "FUEL", "UTILITIES",
	"ENTERTAINMENT", "SHOPPING", "HEALTH", "TRAVEL", "INSURANCE", "FEES",
}
