package composer

import (
	"fmt"

	"promo-series/internal/domain"
)

func subjectTemplates(tone domain.Tone, site, short string) []string {
	switch tone {
	case domain.TonePersuasive:
		return []string{
			fmt.Sprintf("Want to %s?", short),
			fmt.Sprintf("This helps you %s", short),
			fmt.Sprintf("%s: an easy way to %s", site, short),
			fmt.Sprintf("Quick tip: %s", short),
		}
	case domain.ToneUrgent:
		return []string{
			fmt.Sprintf("Don't miss: %s", short),
			fmt.Sprintf("Last chance: %s", short),
			fmt.Sprintf("Act now: %s with %s", short, site),
			fmt.Sprintf("Hurry! %s", short),
		}
	case domain.ToneProfessional:
		return []string{
			fmt.Sprintf("%s: %s", site, short),
			fmt.Sprintf("Pro tip from %s: %s", site, short),
			fmt.Sprintf("How to %s", short),
			fmt.Sprintf("%s, made easy", short),
		}
	case domain.ToneFriendly:
		return []string{
			fmt.Sprintf("Hey! Want to %s?", short),
			fmt.Sprintf("This is cool: %s", short),
			fmt.Sprintf("You'll love this from %s", site),
			fmt.Sprintf("Check this out: %s", short),
		}
	case domain.ToneEducational:
		return []string{
			fmt.Sprintf("Learn how to %s", short),
			fmt.Sprintf("%s, explained", short),
			fmt.Sprintf("A simple %s guide: %s", site, short),
			fmt.Sprintf("How %s works", short),
		}
	default:
		return subjectTemplates(domain.TonePersuasive, site, short)
	}
}

func intro(tone domain.Tone, site string) string {
	switch tone {
	case domain.TonePersuasive:
		return fmt.Sprintf("I want to show you something that can make a real difference. %s was built for people just like you.", site)
	case domain.ToneUrgent:
		return fmt.Sprintf("I'll keep this short, because time matters. %s has something you should not wait on.", site)
	case domain.ToneProfessional:
		return fmt.Sprintf("I'd like to share a practical result our customers see with %s.", site)
	case domain.ToneFriendly:
		return fmt.Sprintf("Hope your week is going well! I found something at %s that I think you'll really like.", site)
	case domain.ToneEducational:
		return fmt.Sprintf("Today let's learn one simple thing %s can help you with, step by step.", site)
	default:
		return intro(domain.TonePersuasive, site)
	}
}

func highlight(industry domain.Industry, benefit string) string {
	switch industry {
	case domain.IndustryHealth:
		return fmt.Sprintf("Here is the big one for your health: %s. Small steps like this add up to feeling better every day.", benefit)
	case domain.IndustryFinance:
		return fmt.Sprintf("Here is what it means for your money: %s. Less worry, more control over every dollar.", benefit)
	case domain.IndustryTechnology:
		return fmt.Sprintf("Here is what changes for you: %s. No tech skills needed, it just works.", benefit)
	case domain.IndustryEcommerce:
		return fmt.Sprintf("Here is why shoppers love it: %s. Better deals, less hassle.", benefit)
	case domain.IndustryEducation:
		return fmt.Sprintf("Here is what you will learn: %s. Clear lessons you can use right away.", benefit)
	case domain.IndustryGeneral:
		return fmt.Sprintf("Here is the main benefit: %s. It makes things easier from day one.", benefit)
	default:
		return highlight(domain.IndustryGeneral, benefit)
	}
}

func evidence(industry domain.Industry) string {
	switch industry {
	case domain.IndustryHealth:
		return "People who tried it say they have more energy within a few weeks. They sleep better and their friends notice the change."
	case domain.IndustryFinance:
		return "Users tell us they finally stick to a budget. Many see their savings grow in the very first month."
	case domain.IndustryTechnology:
		return "Teams report hours saved every week. Setup takes minutes, and problems that used to take a day now take a click."
	case domain.IndustryEcommerce:
		return "Thousands of happy customers come back again and again. Reviews keep pointing to the same thing: it is simply better value."
	case domain.IndustryEducation:
		return "Learners say the lessons finally make sense. Most finish faster than they expected and remember more."
	case domain.IndustryGeneral:
		return "Lots of people have tried it already. They love how simple it is, and most see results in just a few days."
	default:
		return evidence(domain.IndustryGeneral)
	}
}

func visualization(industry domain.Industry) []string {
	switch industry {
	case domain.IndustryHealth:
		return []string{"More energy in the morning", "Less stress during the day", "Better sleep at night"}
	case domain.IndustryFinance:
		return []string{"Fewer money worries", "A plan you can actually follow", "A bank balance that grows"}
	case domain.IndustryTechnology:
		return []string{"Faster work with fewer clicks", "Fewer tech headaches", "Hours saved every week"}
	case domain.IndustryEcommerce:
		return []string{"Better deals on what you love", "Shopping that feels fun again", "Less time searching"}
	case domain.IndustryEducation:
		return []string{"Lessons that make sense", "Skills you can use today", "Confidence that keeps growing"}
	case domain.IndustryGeneral:
		return []string{"Things get easier", "You save time", "You get better results"}
	default:
		return visualization(domain.IndustryGeneral)
	}
}

func callToAction(tone domain.Tone, site, link string) string {
	target := fmt.Sprintf("Visit %s to learn more.", site)
	if link != "" {
		target = link
	}
	switch tone {
	case domain.TonePersuasive:
		return "Ready to see it for yourself? Start here: " + target
	case domain.ToneUrgent:
		return "Don't wait, this won't last. Grab it now: " + target
	case domain.ToneProfessional:
		return "To take the next step, see the details here: " + target
	case domain.ToneFriendly:
		return "Want to give it a try? Check it out here: " + target
	case domain.ToneEducational:
		return "Ready to learn more? Start your journey here: " + target
	default:
		return callToAction(domain.TonePersuasive, site, link)
	}
}

func signoff(tone domain.Tone) string {
	switch tone {
	case domain.TonePersuasive:
		return "Hope this helps!\n\nTalk soon,\nYour friend"
	case domain.ToneUrgent:
		return "Don't wait too long!\n\nBest,\nYour helper"
	case domain.ToneProfessional:
		return "Best wishes,\n\nThe Team"
	case domain.ToneFriendly:
		return "Hope you love it!\n\nYour friend"
	case domain.ToneEducational:
		return "Happy learning!\n\nYour guide"
	default:
		return signoff(domain.ToneFriendly)
	}
}
