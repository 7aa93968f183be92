package chat

type persona struct {
	username string
	color    string
}

var personas = []persona{
	{"mia_shops", "#e91e63"},
	{"dealhunter42", "#3f51b5"},
	{"cozyhome_jen", "#009688"},
	{"sneakerhead", "#ff5722"},
	{"lena.k", "#9c27b0"},
	{"bargain_bob", "#4caf50"},
	{"styleby_sam", "#ff9800"},
	{"techtom", "#2196f3"},
	{"noor_beauty", "#f44336"},
	{"kitchenqueen", "#795548"},
	{"alex_unboxes", "#607d8b"},
	{"petra_p", "#cddc39"},
	{"gadget_gus", "#00bcd4"},
	{"vintagevic", "#673ab7"},
	{"sunny_days", "#ffc107"},
	{"marco.live", "#8bc34a"},
}

var phrases = []string{
	"just ordered one!!",
	"does it come in blue?",
	"how long does shipping take?",
	"love this host 😍",
	"is that the new version?",
	"price is insane",
	"already in my cart",
	"can you show the back?",
	"what size are you wearing?",
	"hi from Berlin 👋",
	"is there a discount code?",
	"my sister has this, she loves it",
	"😂😂",
	"waiting for the giveaway",
	"does it work with iPhone?",
	"sold out already??",
	"that color is gorgeous",
	"how heavy is it?",
	"first time watching, this is fun",
	"🔥🔥🔥",
	"need this for my kitchen",
	"can you zoom in?",
	"bought it last week, 10/10",
	"is it dishwasher safe?",
}
