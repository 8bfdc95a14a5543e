package relay

import (
	"fmt"
	"strings"

	"github.com/m3rciful/fanrelay/internal/model"
)

// MsgSlowDown answers a participant whose message was dropped by the rate limiter.
const MsgSlowDown = "You're sending messages too quickly. Please wait a moment and try again."

const (
	msgNotAuthorized   = "You are not authorized to use this command."
	msgAdminsExcluded  = "This option is not available for admins."
	msgTryAgain        = "Something went wrong. Please try again."
	msgChooseOption    = "Please choose an option:"
	msgGoodbye         = "Goodbye! To start again, type /start."
	msgUnsupported     = "Unsupported action."
	msgHelpPrompt      = "Please type your message for the BTS admins, or type /cancel to stop:"
	msgHelpCancelled   = "Help request cancelled."
	msgHelpSent        = "Your message has been sent to the BTS admins. Please wait for a response. 💜"
	msgNoAccess        = "No access. Please complete your subscription payment to chat with your favorite BTS artist. 🎵"
	msgSubscribeFailed = "Failed to process subscription. Please try again."
	msgNoUsers         = "No users found."
	msgNoChatTargets   = "No users found to chat with."
	msgSelectUser      = "Select a user to chat with:"
	msgSearchButton    = "🔍 Search for a user"
	msgSearchPrompt    = "Please type the username or ID of the user you want to chat with (or type /cancel to stop):"
	msgSearchCancelled = "Search cancelled."
	msgSearchNoMatch   = "No users found matching your search. Try again or type /cancel."
	msgChatEnded       = "--- Chat session ended ---"
	msgBroadcastUsage  = "Please provide a message to broadcast. Usage: /broadcast <message>"
	msgBroadcastEmpty  = "No users found to broadcast to."
	msgNoSubscriptions = "No subscriptions found."
	msgNoPending       = "No pending payments found."
	msgPendingHeader   = "Users with pending payments:"
	msgConfirmUsage    = "Please provide the Telegram ID of the user. Usage: /confirm_payment <telegram_id>"
	msgInvalidID       = "Invalid Telegram ID. Please provide a numeric ID."
	msgConfirmFailed   = "Failed to confirm payment. Please try again."
	msgPaymentNotice   = "Your payment has been confirmed! You can now chat with your favorite BTS artist! 🌟🎤"
)

// texts renders the messages that carry configured names.
type texts struct {
	cfg Config
}

func (t texts) greeting(name string) string {
	return fmt.Sprintf("Hello, %s! Welcome to Big Hit Music with %s! 🎵\n"+
		"I’m here to help you connect with your favorite BTS artist. 🌟\n\n"+
		"Please choose an option:", name, t.cfg.BotName)
}

func (t texts) subscriptionOffer() string {
	return fmt.Sprintf("Our monthly subscription costs %s. Please contact %s to complete your payment. 💸\n"+
		"Once payment is confirmed, you will gain access to chat 💬 with your favorite BTS artist! 🎼🎶",
		t.cfg.Price, t.cfg.PaymentContact)
}

func (t texts) paymentAdminOffline() string {
	return fmt.Sprintf("If %s is not online, please wait for a response. In the meantime, you can prepare your payment of %s "+
		"to enjoy exclusive access to your favorite BTS artist with %s! 💜",
		t.cfg.PaymentContact, t.cfg.Price, t.cfg.BotName)
}

func (t texts) artistContact() string {
	return fmt.Sprintf("You can now chat with your favorite BTS artist at: %s 🎤🎶", t.cfg.RelayContact)
}

func (t texts) relayed(text string) string {
	return fmt.Sprintf("Message from %s: %s 💜", t.cfg.AdminLabel, text)
}

func (t texts) broadcast(text string) string {
	return fmt.Sprintf("📢 Message from %s: %s 💜", t.cfg.BotName, text)
}

func (t texts) reminder(sub model.Subscription, daysLeft int) string {
	return fmt.Sprintf("Reminder: Your subscription with %s ends on %s. %d days left! "+
		"Please renew to continue chatting with your favorite BTS artist. 💜",
		t.cfg.BotName, model.FormatDate(sub.EndDate), daysLeft)
}

func helpRequest(name string, id int64, text string) string {
	return fmt.Sprintf("Help request from %s (ID: %d):\n%s", name, id, text)
}

func userLabel(name string, id int64) string {
	return fmt.Sprintf("%s (ID: %d)", name, id)
}

func userList(users []model.User) string {
	var b strings.Builder
	b.WriteString("Registered users:")
	for _, u := range users {
		fmt.Fprintf(&b, "\nID: %d, Username: %s", u.TelegramID, u.Username)
	}
	return b.String()
}

func chatOpened(u model.User) string {
	return fmt.Sprintf("--- Chat with %s (ID: %d) ---\nSend a message to them, or type /exit to stop chatting.", u.Username, u.TelegramID)
}

func userNotFound(id int64) string {
	return fmt.Sprintf("User with ID %d not found.", id)
}

func relaySent(name, text string) string {
	return fmt.Sprintf("Message sent to %s: %s", name, text)
}

func relayFailed(id int64, err error) string {
	return fmt.Sprintf("Failed to send message to user %d: %v", id, err)
}

func broadcastDone(r BatchReport) string {
	return fmt.Sprintf("Broadcasted message to %d/%d users successfully. 📢", r.Sent, r.Total)
}

func remindDone(r BatchReport) string {
	return fmt.Sprintf("Reminders sent to %d users with upcoming or overdue subscriptions.", r.Sent)
}

func paymentConfirmed(id int64) string {
	return fmt.Sprintf("Payment confirmed for user ID %d.", id)
}
