package mood

// keywords lists the substrings scored for each mood.
var keywords = map[Mood][]string{
	Upbeat: {
		"happy", "joy", "excited", "upbeat", "cheerful", "fun", "energetic",
		"party", "dance", "celebrate", "positive", "great", "awesome",
		"amazing", "good", "wonderful", "fantastic", "excellent", "thrilled",
		"delighted", "ecstatic", "enthusiastic", "lively", "vibrant",
	},
	Calming: {
		"relax", "calm", "peaceful", "quiet", "chill", "mellow", "gentle",
		"soothing", "tired", "sleepy", "tranquil", "serene", "rest",
		"meditate", "unwind", "breathe", "comfort", "ease", "harmony",
	},
	Melancholy: {
		"sad", "depressed", "down", "blue", "unhappy", "lonely", "missing",
		"heartbreak", "tears", "cry", "grief", "sorrow", "regret", "nostalgia",
		"wistful", "yearning", "longing", "hurt", "pain", "emotional",
	},
	Romantic: {
		"love", "heart", "romantic", "passion", "desire", "affection",
		"intimate", "tender", "sweet", "adore", "cherish", "embrace",
		"relationship", "together", "couple", "date", "kiss",
	},
	Motivational: {
		"motivated", "inspired", "determined", "focused", "energized",
		"strong", "power", "achieve", "success", "goal", "win",
		"challenge", "overcome", "push", "drive", "ambition", "hustle",
		"grind", "discipline", "persistence", "dedication",
	},
	Intense: {
		"angry", "rage", "fury", "intense", "aggressive", "powerful",
		"fierce", "wild", "rebel", "fight", "battle", "strength", "force",
		"heavy", "dark", "deep", "raw", "primal", "unstoppable",
	},
	Focused: {
		"study", "work", "concentrate", "focus", "productive", "efficient",
		"learn", "think", "create", "build", "develop", "progress", "improve",
		"grow", "analyze", "solve", "research", "code", "write", "read",
	},
}

// Secondary word lists used to refine a sentiment label.
var (
	energeticWords = []string{"energetic", "excited", "happy", "fun"}
	affectionWords = []string{"love", "heart", "sweet"}
	angerWords     = []string{"angry", "mad", "rage", "hate"}
	taskWords      = []string{"work", "study", "focus"}
	questionWords  = []string{"how", "what", "why", "when", "where", "who"}
	positiveWords  = []string{"love", "happy", "great"}
)
