package services

import "fmt"

// SystemInstruction frames every Language Service call.
const SystemInstruction = `You are Elli, a supportive and empathetic mental health assistant.
You help users reflect on their mental wellbeing by asking thoughtful, non-judgmental questions.
You are not a therapist and cannot give medical advice, but you can guide users through evidence-based screening questionnaires like PHQ-9 and GAD-7.
You respond clearly, kindly, and with emotional intelligence.
You prioritize user safety and provide resources or recommend professional help if someone appears to be in distress.`

// PHQ9Questions are the nine PHQ-9 item stems, asked in order.
var PHQ9Questions = []string{
	"Little interest or pleasure in doing things?",
	"Feeling down, depressed, or hopeless?",
	"Trouble falling or staying asleep, or sleeping too much?",
	"Feeling tired or having little energy?",
	"Poor appetite or overeating?",
	"Feeling bad about yourself — or that you are a failure or have let yourself or your family down?",
	"Trouble concentrating on things, such as reading or watching TV?",
	"Moving or speaking so slowly that other people could have noticed? Or the opposite — being so fidgety or restless that you’ve been moving around a lot more than usual?",
	"Thoughts that you would be better off dead, or thoughts of hurting yourself in some way?",
}

// GAD7Questions are the seven GAD-7 item stems, asked in order.
var GAD7Questions = []string{
	"Feeling nervous, anxious, or on edge?",
	"Not being able to stop or control worrying?",
	"Worrying too much about different things?",
	"Trouble relaxing?",
	"Being so restless that it is hard to sit still?",
	"Becoming easily annoyed or irritable?",
	"Feeling afraid as if something awful might happen?",
}

const (
	msgGreeting = "Hi, I’m Elli. 🌱 What’s your name or nickname?"

	msgNameRetry = "Thanks for sharing. Could you please give me just your name or nickname so I can know how to address you?"

	msgAskAge = "Before we continue, could you share your age?"

	msgAgeRetry = "I couldn't understand your age. Could you please clarify?"

	msgAskGender = "Thank you. What gender do you identify with?"

	msgGenderRetry = "I couldn't understand your gender. Could you please clarify?"

	msgScaleInstructions = "Please respond with a number: 0 (Not at all), 1 (Several days), 2 (More than half the days), or 3 (Nearly every day)."

	msgLikertRetry = "Please enter a number from 1 to 5."

	msgSummaryLead = "Here’s a gentle summary of what you’ve shared:"

	msgAskTrust = "To finish, how much did you feel you could trust Elli? (1–5)"

	msgAskComfort = "Thank you. How comfortable did you feel interacting with Elli? (1–5)"

	msgAskEmpathy = "Thanks. How understood did you feel by Elli? (1–5)"

	msgAskReflection = "Almost done. Do you have any thoughts or feedback about this experience?"

	msgAlreadyDone = "You’ve already completed this check-in. Thank you again for taking part. 🌻"

	msgCrisis = "⚠️ It sounds like you're going through something really difficult. You're not alone.\n\n" +
		"Elli isn't a crisis service, but there are people who care and can help. Please consider reaching out to a professional or one of these mental health support lines:\n\n" +
		"- **US**: Call or text 988 (Suicide & Crisis Lifeline)\n" +
		"- **UK**: Call Samaritans at 116 123\n" +
		"- **Canada**: Call 1-833-456-4566 (Talk Suicide Canada)\n" +
		"- **India**: Call 9152987821 (iCall)\n" +
		"- **International**: [Find a helpline near you](https://findahelpline.com)\n\n" +
		"You matter. 💛"
)

func msgGreetByName(name string) string {
	return fmt.Sprintf("Hi %s, I’m Elli. 🌱 I’m here to gently check in with you. How are you feeling today? (2-3 sentences)", name)
}

func msgFirstPHQ() string {
	return "Thanks for sharing. Let’s reflect on some feelings together.\n\n" +
		msgScaleInstructions + "\n\n" +
		"Over the last 2 weeks: " + PHQ9Questions[0]
}

func msgNextPHQ(i int) string {
	return fmt.Sprintf("%d. %s", i+1, PHQ9Questions[i])
}

func msgFirstGAD() string {
	return "Thank you. Now let’s look at anxiety. Over the last 2 weeks: " + GAD7Questions[0]
}

func msgNextGAD(i int) string {
	return fmt.Sprintf("%d. %s", i+1, GAD7Questions[i])
}

func msgClosing(name string) string {
	if name == "" {
		name = "friend"
	}
	return fmt.Sprintf("Thanks so much for checking in today, %s. Wishing you care and calm. 🌻", name)
}

// Language Service prompt templates.

func promptExtractName(input string) string {
	return fmt.Sprintf("Extract a human name from the following message.\nIf no name is clearly mentioned, reply only with \"None\".\n\nMessage: %q\nName:", input)
}

func promptExtractAge(input string) string {
	return fmt.Sprintf("Extract an age (as a number) from this message: %q. If none, respond \"none\".", input)
}

func promptExtractGender(input string) string {
	return fmt.Sprintf("Extract gender from this message: %q. Reply with \"male\", \"female\", \"other\", or \"none\".", input)
}

func promptSafetyCheck(input string) string {
	return fmt.Sprintf("You are checking for signs of a crisis or self-harm risk in the following free-text response from a user.\n\n"+
		"User message:\n%q\n\n"+
		"Does this message suggest the user is in immediate danger (e.g., suicidal thoughts, severe hopelessness)?\n"+
		"If yes, respond with: \"CRISIS\"\n"+
		"If not, respond with: \"OK\"\n"+
		"Only respond with one of those two words.", input)
}

func promptMoodResponse(input, name string) string {
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf("You are Elli, a warm, concise, supportive assistant. User (%s) wrote:\n%s\n\n"+
		"Write 2–3 sentences reflecting one or two specifics and end with a gentle, open question.", name, input)
}

func promptSummary(r ScoreResult, moodText string) string {
	return fmt.Sprintf("The user completed a PHQ-9 and GAD-7 mental health screening.\n\n"+
		"Mood Reflection:\n%s\n\n"+
		"PHQ-9 score: %d (%s)\n"+
		"GAD-7 score: %d (%s)\n\n"+
		"Please write a warm, supportive, and human-sounding summary (2–3 sentences) that:\n"+
		"- Acknowledges their mood reflection\n"+
		"- Gently names the depression and anxiety levels\n"+
		"- Encourages care without sounding clinical or alarmist",
		moodText, r.PHQTotal, r.PHQBand, r.GADTotal, r.GADBand)
}

// fallbackMoodResponse stands in for the Language Service when it is
// unavailable. Deterministic on purpose.
const fallbackMoodResponse = "Thank you for sharing that with me. However things have been, it matters that you’re taking a moment to check in with yourself today."

func fallbackSummary(r ScoreResult) string {
	return fmt.Sprintf("Thanks for completing both questionnaires. Your answers suggest %s (PHQ-9 score %d of 27) and %s (GAD-7 score %d of 21). "+
		"These scores are a reflection, not a diagnosis — if anything here feels heavy, talking it through with a professional can really help.",
		lower(r.PHQBand), r.PHQTotal, lower(r.GADBand), r.GADTotal)
}

func lower(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}
