package email

import (
	"fmt"
	"strings"

	"storefront/internal/models"
)

func displayName(user *models.User) string {
	if user.Name != nil && *user.Name != "" {
		return *user.Name
	}
	return user.Email
}

func (s *Service) generateWelcomeHTML(user *models.User) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Welcome</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, Cantarell, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
            background-color: #f8f9fa;
        }
        .container {
            background-color: white;
            padding: 40px;
            border-radius: 12px;
            box-shadow: 0 2px 10px rgba(0, 0, 0, 0.1);
        }
        .header {
            text-align: center;
            margin-bottom: 30px;
        }
        .welcome-message {
            font-size: 24px;
            color: #2d5e3e;
            margin-bottom: 20px;
        }
        .footer {
            margin-top: 40px;
            padding-top: 20px;
            border-top: 1px solid #e9ecef;
            font-size: 14px;
            color: #6c757d;
            text-align: center;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <div class="welcome-message">Welcome %s!</div>
        </div>

        <div class="content">
            <p>Thank you for creating an account. You can now browse the catalog, fill your cart and track your orders.</p>
        </div>

        <div class="footer">
            <p style="font-size: 12px;">
                This email was sent to %s. If you did not create this account, you can safely ignore this message.
            </p>
        </div>
    </div>
</body>
</html>`, displayName(user), user.Email)
}

func (s *Service) generateWelcomeText(user *models.User) string {
	return fmt.Sprintf(`Welcome %s!

Thank you for creating an account. You can now browse the catalog, fill your cart and track your orders.

---
This email was sent to %s. If you did not create this account, you can safely ignore this message.`, displayName(user), user.Email)
}

func (s *Service) generateOrderConfirmationHTML(user *models.User, order *models.Order) string {
	var rows strings.Builder
	for _, item := range order.Items {
		rows.WriteString(fmt.Sprintf(
			`<tr><td>%s</td><td style="text-align: center;">%d</td><td style="text-align: right;">%s</td></tr>`,
			item.ProductName, item.Quantity, item.PriceAtPurchase.StringFixed(2)))
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Order Confirmation</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, Cantarell, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
        }
        table {
            width: 100%%;
            border-collapse: collapse;
            margin: 20px 0;
        }
        th, td {
            padding: 8px;
            border-bottom: 1px solid #e9ecef;
            text-align: left;
        }
        .total {
            font-size: 18px;
            font-weight: bold;
            text-align: right;
        }
    </style>
</head>
<body>
    <h2>Thanks for your order, %s!</h2>
    <p>Your order <strong>%s</strong> has been received and is now pending.</p>
    <table>
        <tr><th>Item</th><th style="text-align: center;">Qty</th><th style="text-align: right;">Price</th></tr>
        %s
    </table>
    <p class="total">Total: %s</p>
    <p>We will let you know as soon as it ships.</p>
</body>
</html>`, displayName(user), order.OrderNumber, rows.String(), order.TotalAmount.StringFixed(2))
}

func (s *Service) generateOrderConfirmationText(user *models.User, order *models.Order) string {
	var lines strings.Builder
	for _, item := range order.Items {
		lines.WriteString(fmt.Sprintf("- %s x%d at %s\n",
			item.ProductName, item.Quantity, item.PriceAtPurchase.StringFixed(2)))
	}

	return fmt.Sprintf(`Thanks for your order, %s!

Your order %s has been received and is now pending.

%s
Total: %s

We will let you know as soon as it ships.`,
		displayName(user), order.OrderNumber, lines.String(), order.TotalAmount.StringFixed(2))
}
