package content

const (
	CategoryHarryPotter = "harry_potter"
	CategoryNonsense    = "nonsense"
)

type item struct {
	Q string
	A string
}

var categories = []string{"words", "animals", "history", "science", "food"}

var pools = map[string][]item{
	"words": {
		{"What is a 'snollygoster'?", "A shrewd, unprincipled person"},
		{"What does 'defenestration' mean?", "Throwing someone out of a window"},
		{"What is a 'borborygmus'?", "A rumbling noise in the intestines"},
		{"What is 'petrichor'?", "The smell of earth after rain"},
		{"What is a 'zarf'?", "A holder for a handleless coffee cup"},
	},
	"animals": {
		{"What is a quokka?", "A small marsupial from Western Australia"},
		{"What is an axolotl famous for?", "Regrowing lost limbs"},
		{"What is a pangolin covered in?", "Keratin scales"},
		{"What does a narwhal's tusk grow from?", "A canine tooth"},
		{"How do wombats mark territory?", "With cube-shaped droppings"},
	},
	"history": {
		{"What was the Great Emu War?", "A failed Australian army cull of emus"},
		{"What did Roman soldiers get paid partly in?", "Salt"},
		{"What was the Dancing Plague of 1518?", "People in Strasbourg dancing for days"},
		{"What was sold in Victorian 'penny licks'?", "Ice cream in reusable glasses"},
	},
	"science": {
		{"What is a 'sprite' in meteorology?", "A red flash above thunderstorms"},
		{"What is a 'Bose-Einstein condensate'?", "A state of matter near absolute zero"},
		{"What is 'apophenia'?", "Seeing patterns in random data"},
		{"What is the 'Mpemba effect'?", "Hot water sometimes freezing faster than cold"},
	},
	"food": {
		{"What is 'casu marzu'?", "A Sardinian cheese with live larvae"},
		{"What is 'natto'?", "Fermented soybeans"},
		{"What is a 'turducken'?", "A chicken in a duck in a turkey"},
		{"What is 'hákarl'?", "Fermented shark from Iceland"},
	},
}

var harryPotterPool = []item{
	{"What does the spell 'Tarantallegra' do?", "Forces the target's legs to dance"},
	{"What is a 'Puffskein'?", "A spherical creature that hums when content"},
	{"What is 'Gurdyroot' said to repel?", "Gulping Plimpies"},
	{"What does a 'Sneakoscope' do?", "Spins and whistles near untrustworthy people"},
	{"What is the 'Mimbulus mimbletonia' known for?", "Squirting Stinksap when touched"},
}

var lies = map[string][]string{
	"beginner": {
		"A type of cheese",
		"A small dog",
		"A kind of hat",
		"A dance move",
		"A big boat",
		"Something you eat",
	},
	"pro": {
		"A ceremonial dagger used by Baltic merchants",
		"A medieval tax on chimney soot",
		"A tidal phenomenon in Norwegian fjords",
		"A lacquered box for storing love letters",
		"An alpine festival celebrating the first frost",
		"A fungus that glows under moonlight",
		"A Venetian gondolier's warning whistle",
	},
	"troll": {
		"A sock that has lost its partner",
		"Grandma's secret weapon against pigeons",
		"A penguin with a mortgage",
		"The sound a toaster makes when it's sad",
		"Spaghetti that refuses to be cooked",
	},
}

var roundRoasts = []string{
	"Oof, %s. You really believed \"%s\"? Bold.",
	"%s looked at \"%s\" and thought: yep, that's science.",
	"Somebody tell %s that \"%s\" is not, in fact, a thing.",
}

// Formatted with (name, score).
var finalRoasts = []string{
	"Oof %[1]s, that was rock bottom. Last place? Seriously?",
	"%[1]s is completely lost today. %[2]d points is practically negative.",
	"Congratulations %[1]s on the wooden spoon. Somebody had to lose.",
	"Nice try, %[1]s. %[2]d points. Nice try.",
}
