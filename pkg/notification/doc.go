// Package notification delivers templated notices to users.
//
// The identity engine only sees the Mailer interface. NotificationManager
// implements it by rendering the embedded verification code templates and
// handing the result to the Notifier registered for the email channel:
// EmailNotifier (SMTP via go-mail) in production, MockNotifier in tests.
//
//	nm, err := notification.NewNotificationManagerWithOptions(
//	    notification.WithSMTP(notification.SMTPConfig{Host: "localhost", Port: 1025, From: "noreply@example.com"}),
//	    notification.WithVerificationCodeTemplate(),
//	)
//	err = nm.SendVerificationCode(ctx, "alice@example.com", "482913", "Alice")
package notification
