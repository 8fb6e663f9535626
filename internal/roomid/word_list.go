package roomid

var places = []string{
	"harbor", "meadow", "canyon", "summit", "lagoon", "valley", "garden", "orchard", "prairie", "grove",
	"island", "harvest", "castle", "bridge", "temple", "plaza", "market", "tunnel", "tower", "cabin",
	"desert", "jungle", "glacier", "delta", "cove", "cliff", "dune", "fjord", "marsh", "ridge",
}

var textures = []string{
	"velvet", "copper", "marble", "amber", "cobalt", "ivory", "crimson", "silver", "golden", "coral",
	"indigo", "pearl", "slate", "bronze", "scarlet", "jade", "maroon", "ochre", "sable", "teal",
	"onyx", "ruby", "topaz", "quartz", "garnet", "opal", "lilac", "hazel", "sepia", "frost",
}

var birds = []string{
	"sparrow", "falcon", "heron", "swift", "plover", "kestrel", "osprey", "warbler", "finch", "wren",
	"magpie", "swallow", "lark", "crane", "egret", "kite", "petrel", "raven", "starling", "tern",
	"ibis", "jay", "loon", "owl", "quail", "robin", "siskin", "stork", "thrush", "vireo",
}
